// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package filestore implements an object store kept in a local directory.
// It has no cold tier.
package filestore

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/objectstore"
)

var (
	// Error is the default filestore error class.
	Error = errs.Class("filestore")

	mon = monkit.Package()
)

var _ objectstore.Store = (*Store)(nil)

// Store implements objectstore.Store on a local directory.
type Store struct {
	log *zap.Logger
	dir *Dir
}

// New creates a new store in the specified directory.
func New(log *zap.Logger, dir *Dir) *Store {
	return &Store{log: log, dir: dir}
}

// NewAt creates a new store in the specified directory.
func NewAt(log *zap.Logger, path string) (*Store, error) {
	dir, err := NewDir(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return New(log, dir), nil
}

// Exists implements objectstore.Store.
func (store *Store) Exists(ctx context.Context, key string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	_, err = store.dir.Stat(key)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

// Put implements objectstore.Store.
func (store *Store) Put(ctx context.Context, key string, r io.Reader, size int64, overwrite bool) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	if !overwrite {
		exists, err := store.Exists(ctx, key)
		if err != nil || exists {
			return false, err
		}
	}

	file, err := store.dir.CreateTemporaryFile(size)
	if err != nil {
		return false, Error.Wrap(err)
	}

	n, err := io.Copy(file, r)
	if err == nil && n != size {
		err = Error.New("%q: read %d bytes, expected %d", key, n, size)
	}
	if err != nil {
		return false, Error.Wrap(errs.Combine(err, store.dir.DeleteTemporary(file)))
	}

	committed, err := store.dir.Commit(file, key, overwrite)
	if err != nil {
		return false, Error.Wrap(err)
	}
	if !committed {
		store.log.Debug("lost put race", zap.String("key", key))
	}
	return committed, nil
}

// Get implements objectstore.Store.
func (store *Store) Get(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	defer mon.Task()(&ctx)(&err)
	file, err := store.dir.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, objectstore.ErrNotFound.New("%q", key)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return file, nil
}

// Delete implements objectstore.Store.
func (store *Store) Delete(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)
	err = store.dir.Delete(key)
	if errors.Is(err, fs.ErrNotExist) {
		return objectstore.ErrNotFound.New("%q", key)
	}
	return Error.Wrap(err)
}

// List implements objectstore.Store.
func (store *Store) List(ctx context.Context, opts objectstore.ListOptions, fn func(objectstore.ObjectInfo) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	blobs, err := store.dir.walk()
	if err != nil {
		return Error.Wrap(err)
	}
	for _, blob := range blobs {
		if !opts.Match(blob.key) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(objectstore.ObjectInfo{
			Key:          blob.key,
			Size:         blob.size,
			StorageClass: objectstore.ClassStandard,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RequestRestore implements objectstore.Store. Objects in a local directory
// are never cold.
func (store *Store) RequestRestore(ctx context.Context, key string, days int, tier objectstore.RetrievalTier) (err error) {
	defer mon.Task()(&ctx)(&err)
	return objectstore.ErrUnsupported.New("filestore has no cold tier")
}
