// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/archiver"
	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/changecache/kvcache"
	"storj.io/minus80/archive/changecache/sqlitecache"
	"storj.io/minus80/archive/download"
	"storj.io/minus80/archive/thaw"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/objectstore/filestore"
	"storj.io/minus80/objectstore/s3store"
	"storj.io/minus80/objectstore/storelogger"
	"storj.io/minus80/private/cfgstruct"
	"storj.io/minus80/private/kvstore/boltdb"
	"storj.io/minus80/private/kvstore/redis"
	kvlogger "storj.io/minus80/private/kvstore/storelogger"
	"storj.io/minus80/private/process"
)

// Store backends.
const (
	BackendS3   = "s3"
	BackendFile = "file"
)

// Cache drivers.
const (
	DriverSqlite = "sqlite"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

// StoreConfig selects and configures the object store.
type StoreConfig struct {
	Backend string `help:"object store backend: s3 or file" default:"s3"`
	Dir     string `help:"directory of the file backend" default:"$CONFDIR/store"`

	s3store.Config
}

// CacheConfig selects and configures the change cache.
type CacheConfig struct {
	Driver   string `help:"change cache driver: sqlite, bolt or redis" default:"sqlite"`
	Path     string `help:"database file of the sqlite and bolt drivers" default:"$CONFDIR/cache.sqlite3"`
	RedisURL string `help:"redis://host:port?db=N address of the redis driver" default:""`
}

// Config is the configuration of every command.
type Config struct {
	Store    StoreConfig
	Cache    CacheConfig
	Archive  archiver.Config
	Thaw     thaw.Config
	Download download.Config
	Log      process.LogConfig
}

var (
	cfg       Config
	verbosity int

	rootCmd = &cobra.Command{
		Use:          "minus80",
		Short:        "Long-term archival backup to a tiered object store",
		SilenceUsage: true,
	}

	defaultConfDir = process.DefaultConfigDir("minus80")
)

func init() {
	rootCmd.PersistentFlags().String(process.ConfigFlag, filepath.Join(defaultConfDir, "config.yaml"), "config file (yaml or json)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity: -v for info, -vv for debug")
	_ = rootCmd.PersistentFlags().SetAnnotation("verbose", "setup", []string{"true"})
}

func addCmd(cmd *cobra.Command, root *cobra.Command) *cobra.Command {
	root.AddCommand(cmd)
	cfgstruct.Bind(cmd.Flags(), &cfg, cfgstruct.ConfDir(defaultConfDir))
	return cmd
}

// newLogger creates the process logger from the log config and -v count.
func newLogger() (*zap.Logger, error) {
	return process.NewLogger(cfg.Log, verbosity)
}

// openStore opens the configured object store, logging every call at debug level.
func openStore(ctx context.Context, log *zap.Logger, config StoreConfig) (objectstore.Store, error) {
	var store objectstore.Store
	switch strings.ToLower(config.Backend) {
	case BackendS3:
		s3, err := s3store.Open(ctx, log.Named("s3"), config.Config)
		if err != nil {
			return nil, err
		}
		store = s3
	case BackendFile:
		files, err := filestore.NewAt(log.Named("filestore"), config.Dir)
		if err != nil {
			return nil, err
		}
		store = files
	default:
		return nil, errs.New("unknown store backend %q", config.Backend)
	}
	return storelogger.New(log.Named("store"), store), nil
}

// openCache opens the configured change cache.
func openCache(ctx context.Context, log *zap.Logger, config CacheConfig) (changecache.DB, error) {
	switch strings.ToLower(config.Driver) {
	case DriverSqlite:
		return sqlitecache.Open(ctx, log.Named("cache"), config.Path)
	case DriverBolt:
		store, err := boltdb.New(config.Path, "files")
		if err != nil {
			return nil, err
		}
		return kvcache.New(kvlogger.New(log.Named("cache"), store)), nil
	case DriverRedis:
		if config.RedisURL == "" {
			return nil, errs.New("cache.redis-url is required for the redis driver")
		}
		store, err := redis.OpenClientFrom(ctx, config.RedisURL)
		if err != nil {
			return nil, err
		}
		return kvcache.New(kvlogger.New(log.Named("cache"), store)), nil
	default:
		return nil, errs.New("unknown cache driver %q", config.Driver)
	}
}
