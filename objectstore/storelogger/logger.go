// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package storelogger wraps an object store and logs every call.
package storelogger

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/minus80/objectstore"
)

var mon = monkit.Package()

var id int64

var _ objectstore.Store = (*Logger)(nil)

// Logger implements a zap.Logger for objectstore.Store.
type Logger struct {
	log   *zap.Logger
	store objectstore.Store
}

// New creates a new Logger with log and store.
func New(log *zap.Logger, store objectstore.Store) *Logger {
	loggerid := atomic.AddInt64(&id, 1)
	name := strconv.Itoa(int(loggerid))
	return &Logger{log.Named(name), store}
}

// Unwrap returns the wrapped store.
func (store *Logger) Unwrap() objectstore.Store { return store.store }

// Exists checks whether key exists.
func (store *Logger) Exists(ctx context.Context, key string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	exists, err := store.store.Exists(ctx, key)
	store.log.Debug("Exists", zap.String("key", key), zap.Bool("exists", exists), zap.Error(err))
	return exists, err
}

// Put uploads an object.
func (store *Logger) Put(ctx context.Context, key string, r io.Reader, size int64, overwrite bool) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	transferred, err := store.store.Put(ctx, key, r, size, overwrite)
	store.log.Debug("Put",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.Bool("overwrite", overwrite),
		zap.Bool("transferred", transferred),
		zap.Error(err),
	)
	return transferred, err
}

// Get opens an object.
func (store *Logger) Get(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Get", zap.String("key", key))
	return store.store.Get(ctx, key)
}

// Delete removes an object.
func (store *Logger) Delete(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Delete", zap.String("key", key))
	return store.store.Delete(ctx, key)
}

// List lists the objects matching opts.
func (store *Logger) List(ctx context.Context, opts objectstore.ListOptions, fn func(objectstore.ObjectInfo) error) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("List", zap.String("prefix", opts.Prefix), zap.String("start-after", opts.StartAfter))
	return store.store.List(ctx, opts, func(info objectstore.ObjectInfo) error {
		store.log.Debug("  ",
			zap.String("key", info.Key),
			zap.Int64("size", info.Size),
			zap.String("class", info.StorageClass),
			zap.Stringer("restore", info.Restore),
		)
		return fn(info)
	})
}

// RequestRestore requests a restore of a cold object.
func (store *Logger) RequestRestore(ctx context.Context, key string, days int, tier objectstore.RetrievalTier) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("RequestRestore", zap.String("key", key), zap.Int("days", days), zap.String("tier", string(tier)))
	return store.store.RequestRestore(ctx, key, days, tier)
}

// EnsureTransition forwards to the wrapped store when it manages lifecycles.
func (store *Logger) EnsureTransition(ctx context.Context, ruleID, prefix string, days int) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	manager, ok := store.store.(objectstore.LifecycleManager)
	if !ok {
		return false, objectstore.ErrUnsupported.New("store has no lifecycle rules")
	}
	added, err := manager.EnsureTransition(ctx, ruleID, prefix, days)
	store.log.Debug("EnsureTransition", zap.String("rule", ruleID), zap.String("prefix", prefix), zap.Int("days", days), zap.Bool("added", added))
	return added, err
}
