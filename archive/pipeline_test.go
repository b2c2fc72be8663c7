// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package archive_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/minus80/archive/archiver"
	"storj.io/minus80/archive/changecache/sqlitecache"
	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/download"
	"storj.io/minus80/archive/layout"
	"storj.io/minus80/archive/rebuild"
	"storj.io/minus80/archive/thaw"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/objectstore/filestore"
	"storj.io/minus80/objectstore/storelogger"
	"storj.io/minus80/objectstore/teststore"
	"storj.io/minus80/private/testcontext"
)

func TestEndToEnd(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)

	src := ctx.Dir("src")
	a := filepath.Join(src, "one", "A")
	b := filepath.Join(src, "two", "B")
	for path, mtime := range map[string]int64{a: 1000, b: 2000} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))
		require.NoError(t, os.Chtimes(path, time.Unix(mtime, 0), time.Unix(mtime, 0)))
	}
	a, err := filepath.EvalSymlinks(a)
	require.NoError(t, err)
	b, err = filepath.EvalSymlinks(b)
	require.NoError(t, err)

	store := teststore.New()
	remote := storelogger.New(log, store)

	cache, err := sqlitecache.Open(ctx, log, filepath.Join(ctx.Dir("cache"), "cache.sqlite3"))
	require.NoError(t, err)
	defer ctx.Check(cache.Close)

	stats, err := archiver.New(log, remote, cache, archiver.Config{DaysToGlacier: 30}).Archive(ctx, []string{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 1, stats.Existing)

	hello := digest.Bytes([]byte("hello"))
	require.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hello.String())
	require.Equal(t, []string{layout.DataKey(hello)}, store.Keys(layout.DataPrefix))

	indexKeys := store.Keys(layout.IndexDir(hello))
	require.Len(t, indexKeys, 2)
	var paths []string
	for _, key := range indexKeys {
		obj, ok := store.Object(key)
		require.True(t, ok)
		record, err := layout.ParseMetadata(obj.Data)
		require.NoError(t, err)
		require.Equal(t, hello, record.Data)
		paths = append(paths, record.Path)
	}
	require.ElementsMatch(t, []string{a, b}, paths)

	// the lifecycle rule moves content to the cold tier
	store.Freeze(layout.DataPrefix)

	th, err := thaw.New(log, remote, thaw.NoPacing{}, thaw.Config{Days: 1})
	require.NoError(t, err)
	result, err := th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Requested)
	store.CompleteRestores(time.Now())

	downloaded := ctx.Dir("downloaded")
	dl, err := download.New(log, remote, download.Config{Concurrency: 2}).Download(ctx, downloaded)
	require.NoError(t, err)
	require.Zero(t, dl.Failed)
	require.Zero(t, dl.Frozen)

	dest := ctx.Dir("dest")
	rb, err := rebuild.New(log).Rebuild(ctx, downloaded, dest)
	require.NoError(t, err)
	require.Equal(t, 2, rb.Rebuilt)

	for path, mtime := range map[string]int64{a: 1000, b: 2000} {
		restored := filepath.Join(dest, path)
		data, err := os.ReadFile(restored)
		require.NoError(t, err)
		require.Equal(t, "hello", string(data))

		info, err := os.Stat(restored)
		require.NoError(t, err)
		require.True(t, info.ModTime().Equal(time.Unix(mtime, 0)), "%s: %v", path, info.ModTime())
	}
}

func TestEndToEndFilestore(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)

	path := filepath.Join(ctx.Dir("src"), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a photo"), 0644))

	store, err := filestore.NewAt(log, ctx.Dir("remote"))
	require.NoError(t, err)
	var remote objectstore.Store = store

	cache, err := sqlitecache.Open(ctx, log, filepath.Join(ctx.Dir("cache"), "cache.sqlite3"))
	require.NoError(t, err)
	defer ctx.Check(cache.Close)

	stats, err := archiver.New(log, remote, cache, archiver.Config{}).Archive(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)

	downloaded := ctx.Dir("downloaded")
	_, err = download.New(log, remote, download.Config{Concurrency: 1}).Download(ctx, downloaded)
	require.NoError(t, err)

	dest := ctx.Dir("dest")
	_, err = rebuild.New(log).Rebuild(ctx, downloaded, dest)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dest, resolved))
	require.NoError(t, err)
	require.Equal(t, "not really a photo", string(data))
}
