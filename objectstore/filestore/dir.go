// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package filestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/errs"

	"storj.io/minus80/archive/layout"
)

// Dir implements the sharded on-disk layout of a store.
type Dir struct {
	path string
}

// NewDir returns a new Dir for the specified path.
func NewDir(path string) (*Dir, error) {
	dir := &Dir{path: path}
	return dir, errs.Combine(
		os.MkdirAll(dir.blobsdir(), 0700),
		os.MkdirAll(dir.tempdir(), 0700),
	)
}

// Path returns the directory path.
func (dir *Dir) Path() string { return dir.path }

func (dir *Dir) blobsdir() string { return filepath.Join(dir.path, "blobs") }
func (dir *Dir) tempdir() string  { return filepath.Join(dir.path, "temp") }

// CreateTemporaryFile creates a preallocated temporary file in the temp directory.
func (dir *Dir) CreateTemporaryFile(prealloc int64) (*os.File, error) {
	file, err := os.CreateTemp(dir.tempdir(), "blob-*.partial")
	if err != nil {
		return nil, err
	}

	if prealloc >= 0 {
		if err := file.Truncate(prealloc); err != nil {
			return nil, errs.Combine(err, file.Close(), os.Remove(file.Name()))
		}
	}
	return file, nil
}

// DeleteTemporary deletes a temporary file.
func (dir *Dir) DeleteTemporary(file *os.File) error {
	closeErr := file.Close()
	return errs.Combine(closeErr, os.Remove(file.Name()))
}

// blobToPath converts a key to the sharded path of the blob.
func (dir *Dir) blobToPath(key string) (string, error) {
	rel, err := layout.LocalPath(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir.blobsdir(), rel), nil
}

// Commit syncs and moves a temporary file into place. When overwrite is
// false and the blob exists, Commit discards the file and returns false.
func (dir *Dir) Commit(file *os.File, key string, overwrite bool) (committed bool, err error) {
	defer func() {
		if err != nil || !committed {
			err = errs.Combine(err, os.Remove(file.Name()))
		}
	}()

	syncErr := file.Sync()
	closeErr := file.Close()
	if err := errs.Combine(syncErr, closeErr); err != nil {
		return false, err
	}

	path, err := dir.blobToPath(key)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return false, err
	}

	if overwrite {
		if err := os.Rename(file.Name(), path); err != nil {
			return false, err
		}
		return true, nil
	}

	// link fails when the target exists, which makes the write exclusive
	err = os.Link(file.Name(), path)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, os.Remove(file.Name())
}

// Open opens the blob at key.
func (dir *Dir) Open(key string) (*os.File, error) {
	path, err := dir.blobToPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Stat stats the blob at key.
func (dir *Dir) Stat(key string) (fs.FileInfo, error) {
	path, err := dir.blobToPath(key)
	if err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// Delete deletes the blob at key.
func (dir *Dir) Delete(key string) error {
	path, err := dir.blobToPath(key)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// blob is a key found while walking the directory.
type blob struct {
	key  string
	size int64
}

// walk returns every blob, sorted by key.
func (dir *Dir) walk() ([]blob, error) {
	root := dir.blobsdir()

	var blobs []blob
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key, err := layout.KeyFromLocalPath(rel)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		blobs = append(blobs, blob{key: key, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(blobs, func(i, k int) bool { return blobs[i].key < blobs[k].key })
	return blobs, nil
}
