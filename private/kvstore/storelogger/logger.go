// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package storelogger wraps a kvstore.Store and logs every call at debug level.
package storelogger

import (
	"context"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/minus80/private/kvstore"
)

var mon = monkit.Package()

// Logger logs the calls made to a kvstore.Store.
type Logger struct {
	log   *zap.Logger
	store kvstore.Store
}

// New wraps store so that every call is logged to log.
func New(log *zap.Logger, store kvstore.Store) *Logger {
	return &Logger{log: log, store: store}
}

// Put logs and forwards a put.
func (store *Logger) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	defer func() { store.done("kv-put", key, len(value), err) }()
	return store.store.Put(ctx, key, value)
}

// Get logs and forwards a get. A missing key is not logged as a failure.
func (store *Logger) Get(ctx context.Context, key kvstore.Key) (value kvstore.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	value, err = store.store.Get(ctx, key)
	if kvstore.ErrKeyNotFound.Has(err) {
		store.log.Debug("kv-miss", zap.String("key", printable(key)))
		return nil, err
	}
	store.done("kv-get", key, len(value), err)
	return value, err
}

// Delete logs and forwards a delete.
func (store *Logger) Delete(ctx context.Context, key kvstore.Key) (err error) {
	defer mon.Task()(&ctx)(&err)
	defer func() { store.done("kv-delete", key, 0, err) }()
	return store.store.Delete(ctx, key)
}

// Range logs the number of items visited.
func (store *Logger) Range(ctx context.Context, fn func(context.Context, kvstore.Key, kvstore.Value) error) (err error) {
	defer mon.Task()(&ctx)(&err)
	var count int
	err = store.store.Range(ctx, func(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
		count++
		return fn(ctx, key, value)
	})
	store.log.Debug("kv-range", zap.Int("items", count), zap.Error(err))
	return err
}

// Close closes the store.
func (store *Logger) Close() error {
	store.log.Debug("kv-close")
	return store.store.Close()
}

func (store *Logger) done(event string, key kvstore.Key, size int, err error) {
	if err != nil {
		store.log.Warn(event+"-failed", zap.String("key", printable(key)), zap.Error(err))
		return
	}
	store.log.Debug(event, zap.String("key", printable(key)), zap.Int("size", size))
}

// printable replaces the NUL separators of cache keys.
func printable(key kvstore.Key) string {
	return strings.ReplaceAll(string(key), "\x00", " ")
}
