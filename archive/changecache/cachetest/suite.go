// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cachetest contains the shared tests for changecache.DB implementations.
package cachetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/digest"
	"storj.io/minus80/private/testcontext"
)

// Record returns a record with digests derived from its key.
func Record(path string, mtime int64, size int64) changecache.FileRecord {
	return changecache.FileRecord{
		AbsPath:    path,
		MTime:      time.Unix(mtime, 0),
		Size:       size,
		InfoDigest: digest.Bytes([]byte(fmt.Sprintf("info:%s:%d:%d", path, mtime, size))),
		DataDigest: digest.Bytes([]byte(fmt.Sprintf("data:%s", path))),
		UpdatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// RunTests runs common changecache.DB tests.
func RunTests(t *testing.T, db changecache.DB) {
	t.Run("Lookup", func(t *testing.T) { testLookup(t, db) })
	t.Run("ExactMatch", func(t *testing.T) { testExactMatch(t, db) })
	t.Run("Upsert", func(t *testing.T) { testUpsert(t, db) })
}

func testLookup(t *testing.T, db changecache.DB) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	record := Record("/lookup/file.txt", 1000, 10)

	_, found, err := db.Lookup(ctx, record.Key())
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, db.Record(ctx, record))

	got, found, err := db.Lookup(ctx, record.Key())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, record.AbsPath, got.AbsPath)
	require.True(t, record.MTime.Equal(got.MTime))
	require.Equal(t, record.Size, got.Size)
	require.Equal(t, record.InfoDigest, got.InfoDigest)
	require.Equal(t, record.DataDigest, got.DataDigest)
	require.True(t, record.UpdatedAt.Equal(got.UpdatedAt))
}

func testExactMatch(t *testing.T, db changecache.DB) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	record := Record("/exact/file.txt", 2000, 20)
	record.MTime = record.MTime.Add(123456789 * time.Nanosecond)
	require.NoError(t, db.Record(ctx, record))

	for _, key := range []changecache.Key{
		{AbsPath: record.AbsPath, MTime: record.MTime.Add(time.Nanosecond), Size: record.Size},
		{AbsPath: record.AbsPath, MTime: record.MTime, Size: record.Size + 1},
		{AbsPath: record.AbsPath + "x", MTime: record.MTime, Size: record.Size},
	} {
		_, found, err := db.Lookup(ctx, key)
		require.NoError(t, err)
		require.False(t, found, "%+v", key)
	}

	_, found, err := db.Lookup(ctx, record.Key())
	require.NoError(t, err)
	require.True(t, found)
}

func testUpsert(t *testing.T, db changecache.DB) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	first := Record("/upsert/file.txt", 3000, 30)
	require.NoError(t, db.Record(ctx, first))

	second := first
	second.InfoDigest = digest.Bytes([]byte("replaced"))
	require.NoError(t, db.Record(ctx, second))

	got, found, err := db.Lookup(ctx, first.Key())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, second.InfoDigest, got.InfoDigest)
}
