// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package process sets up configuration, logging and signal handling for
// command line tools.
package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// Error is a process error class.
var Error = errs.Class("process")

// EnvPrefix is the prefix of environment variables overriding flags.
const EnvPrefix = "MINUS80"

// ConfigFlag is the name of the flag holding the config file location.
const ConfigFlag = "config"

// DefaultConfigDir returns the directory holding the config file and local state.
func DefaultConfigDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + name
	}
	return filepath.Join(home, "."+name)
}

// Exec runs a cobra command. The configuration is loaded before any command
// runs and the process exits non-zero when the command fails.
func Exec(cmd *cobra.Command) {
	ExecWithContext(context.Background(), cmd)
}

// ExecWithContext is like Exec but runs the command with ctx, canceled on
// SIGINT or SIGTERM.
func ExecWithContext(ctx context.Context, cmd *cobra.Command) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	chainPreRun(cmd)

	if err := cmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func chainPreRun(cmd *cobra.Command) {
	prerun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := LoadConfig(c, viper.New()); err != nil {
			return err
		}
		if prerun != nil {
			return prerun(c, args)
		}
		return nil
	}
}

// LoadConfig reads the config file and MINUS80_* environment variables into
// vip and sets every flag of cmd that was not given on the command line.
// A missing default config file is not an error; a missing explicit one or a
// malformed file is.
func LoadConfig(cmd *cobra.Command, vip *viper.Viper) error {
	flags := cmd.Flags()

	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if cfgFlag := flags.Lookup(ConfigFlag); cfgFlag != nil && cfgFlag.Value.String() != "" {
		path := os.ExpandEnv(cfgFlag.Value.String())
		_, err := os.Stat(path)
		switch {
		case err == nil:
			vip.SetConfigFile(path)
			if err := vip.ReadInConfig(); err != nil {
				return Error.New("unable to read %q: %v", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !cfgFlag.Changed:
		default:
			return Error.Wrap(err)
		}
	}

	var errlist errs.Group
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == ConfigFlag || !vip.IsSet(f.Name) {
			return
		}
		value := vip.Get(f.Name)
		if err := f.Value.Set(stringify(value)); err != nil {
			errlist.Add(Error.New("invalid value %v for %s: %v", value, f.Name, err))
		}
	})
	return errlist.Err()
}

func stringify(value interface{}) string {
	switch value := value.(type) {
	case []interface{}:
		parts := make([]string, 0, len(value))
		for _, part := range value {
			parts = append(parts, fmt.Sprint(part))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(value)
	}
}
