// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package kvcache implements the change cache on a kvstore.Store.
package kvcache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/digest"
	"storj.io/minus80/private/kvstore"
)

var (
	mon = monkit.Package()

	// Error is the default kvcache error class.
	Error = errs.Class("kvcache")
)

var _ changecache.DB = (*Cache)(nil)

// Cache stores FileRecords in a key/value store.
type Cache struct {
	store kvstore.Store
}

// New returns a cache backed by store. Closing the cache closes store.
func New(store kvstore.Store) *Cache {
	return &Cache{store: store}
}

type value struct {
	Info    digest.Digest `json:"info"`
	Data    digest.Digest `json:"data"`
	Updated time.Time     `json:"updated"`
}

// EncodeKey returns the store key for key.
func EncodeKey(key changecache.Key) kvstore.Key {
	var b strings.Builder
	b.WriteString(key.AbsPath)
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(key.MTime.UnixNano(), 10))
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(key.Size, 10))
	return kvstore.Key(b.String())
}

// Lookup finds the record matching key exactly.
func (cache *Cache) Lookup(ctx context.Context, key changecache.Key) (_ changecache.FileRecord, found bool, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := cache.store.Get(ctx, EncodeKey(key))
	if kvstore.ErrKeyNotFound.Has(err) {
		return changecache.FileRecord{}, false, nil
	}
	if err != nil {
		return changecache.FileRecord{}, false, Error.Wrap(err)
	}

	var v value
	if err := json.Unmarshal(data, &v); err != nil {
		return changecache.FileRecord{}, false, Error.Wrap(err)
	}

	return changecache.FileRecord{
		AbsPath:    key.AbsPath,
		MTime:      key.MTime,
		Size:       key.Size,
		InfoDigest: v.Info,
		DataDigest: v.Data,
		UpdatedAt:  v.Updated,
	}, true, nil
}

// Record inserts or replaces record.
func (cache *Cache) Record(ctx context.Context, record changecache.FileRecord) (err error) {
	defer mon.Task()(&ctx)(&err)

	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	data, err := json.Marshal(value{
		Info:    record.InfoDigest,
		Data:    record.DataDigest,
		Updated: updated.UTC(),
	})
	if err != nil {
		return Error.Wrap(err)
	}

	return Error.Wrap(cache.store.Put(ctx, EncodeKey(record.Key()), data))
}

// Close closes the underlying store.
func (cache *Cache) Close() error {
	return Error.Wrap(cache.store.Close())
}
