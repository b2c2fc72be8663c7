// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package changecache defines the local change-detection cache used to skip
// files that were already archived.
package changecache

import (
	"context"
	"time"

	"github.com/zeebo/errs"

	"storj.io/minus80/archive/digest"
)

// Error is the default changecache error class.
var Error = errs.Class("changecache")

// Key identifies a file version by its canonical path, modification time and size.
type Key struct {
	AbsPath string
	MTime   time.Time
	Size    int64
}

// FileRecord is the cached proof that a file version was archived.
//
// A record is a performance hint only; it does not prove the remote
// objects still exist.
type FileRecord struct {
	AbsPath    string
	MTime      time.Time
	Size       int64
	InfoDigest digest.Digest
	DataDigest digest.Digest
	UpdatedAt  time.Time
}

// Key returns the unique key of the record.
func (record FileRecord) Key() Key {
	return Key{AbsPath: record.AbsPath, MTime: record.MTime, Size: record.Size}
}

// DB is the change cache.
//
// architecture: Database
type DB interface {
	// Lookup finds the record matching key exactly.
	Lookup(ctx context.Context, key Key) (_ FileRecord, found bool, err error)
	// Record inserts or replaces record. The record is durable when Record returns.
	Record(ctx context.Context, record FileRecord) error
	// Close closes the cache.
	Close() error
}
