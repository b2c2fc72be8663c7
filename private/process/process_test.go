// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"storj.io/minus80/private/cfgstruct"
	"storj.io/minus80/private/testcontext"
)

type testConfig struct {
	Store struct {
		Bucket string `help:"bucket" default:"default-bucket"`
		Region string `help:"region" default:"us-east-1"`
	}
	Thaw struct {
		Days int `help:"days" default:"30"`
	}
	Log LogConfig
}

func newCommand(config *testConfig, configFile string) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String(ConfigFlag, configFile, "config file")
	cfgstruct.Bind(cmd.Flags(), config)
	return cmd
}

func TestLoadConfigPrecedence(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	configFile := ctx.File("config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("store:\n  bucket: from-file\n  region: file-region\nthaw:\n  days: 7\n"), 0600))

	t.Setenv("MINUS80_STORE_REGION", "env-region")

	var config testConfig
	cmd := newCommand(&config, configFile)
	require.NoError(t, cmd.ParseFlags([]string{"--thaw.days=3"}))
	require.NoError(t, LoadConfig(cmd, viper.New()))

	require.Equal(t, "from-file", config.Store.Bucket)
	require.Equal(t, "env-region", config.Store.Region)
	require.Equal(t, 3, config.Thaw.Days)
	require.Equal(t, "warn", config.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	missing := filepath.Join(ctx.Dir(), "missing.yaml")

	// the default location may not exist
	var config testConfig
	cmd := newCommand(&config, missing)
	require.NoError(t, LoadConfig(cmd, viper.New()))
	require.Equal(t, "default-bucket", config.Store.Bucket)

	// an explicitly requested file must
	cmd = newCommand(&config, "")
	require.NoError(t, cmd.ParseFlags([]string{"--config=" + missing}))
	require.Error(t, LoadConfig(cmd, viper.New()))
}

func TestLoadConfigMalformed(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	configFile := ctx.File("config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("store: [unclosed\n"), 0600))

	var config testConfig
	require.Error(t, LoadConfig(newCommand(&config, configFile), viper.New()))

	require.NoError(t, os.WriteFile(configFile, []byte("thaw:\n  days: many\n"), 0600))
	require.Error(t, LoadConfig(newCommand(&config, configFile), viper.New()))
}

func TestSaveConfig(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	outfile := filepath.Join(ctx.Dir("conf"), "config.yaml")

	var config testConfig
	cmd := newCommand(&config, outfile)
	require.NoError(t, cmd.ParseFlags([]string{"--store.bucket=saved", "--thaw.days=12"}))
	require.NoError(t, SaveConfig(cmd, outfile))

	info, err := os.Stat(outfile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	var loaded testConfig
	cmd = newCommand(&loaded, outfile)
	require.NoError(t, LoadConfig(cmd, viper.New()))
	require.Equal(t, "saved", loaded.Store.Bucket)
	require.Equal(t, 12, loaded.Thaw.Days)

	entries, err := os.ReadDir(filepath.Dir(outfile))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNewLogger(t *testing.T) {
	require.Equal(t, zapcore.WarnLevel, VerbosityLevel(0))
	require.Equal(t, zapcore.InfoLevel, VerbosityLevel(1))
	require.Equal(t, zapcore.DebugLevel, VerbosityLevel(3))

	log, err := NewLogger(LogConfig{Level: "error", Output: "stderr"}, 0)
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = NewLogger(LogConfig{Level: "error", Output: "stderr"}, 2)
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(LogConfig{Level: "loud"}, 0)
	require.Error(t, err)
}
