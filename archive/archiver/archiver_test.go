// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package archiver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/minus80/archive/archiver"
	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/changecache/kvcache"
	"storj.io/minus80/archive/changecache/sqlitecache"
	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/layout"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/objectstore/filestore"
	"storj.io/minus80/objectstore/teststore"
	kvteststore "storj.io/minus80/private/kvstore/teststore"
	"storj.io/minus80/private/testcontext"
	"storj.io/minus80/private/version"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func writeFile(t *testing.T, path, contents string, mtime int64) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	stamp := time.Unix(mtime, 0)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

func newArchiver(t *testing.T, store objectstore.Store, cache changecache.DB, config archiver.Config) *archiver.Archiver {
	a := archiver.New(zaptest.NewLogger(t), store, cache, config)
	a.SetNow(func() time.Time { return fixedNow })
	return a
}

func TestArchiveIdempotent(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dir := ctx.Dir("src")
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	writeFile(t, a, "alpha", 1000)
	writeFile(t, b, "bravo", 2000)

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	arch := newArchiver(t, store, cache, archiver.Config{})

	stats, err := arch.Archive(ctx, []string{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Files)
	require.Equal(t, 2, stats.Uploaded)
	require.Equal(t, 2, stats.Indexed)
	require.EqualValues(t, 10, stats.UploadedBytes)

	require.ElementsMatch(t, []string{layout.DataKey(digest.Bytes([]byte("alpha"))), layout.DataKey(digest.Bytes([]byte("bravo")))}, store.Keys(layout.DataPrefix))
	require.Len(t, store.Keys(layout.IndexPrefix), 2)
	require.Len(t, store.Keys(layout.StreamPrefix), 2)

	readme, ok := store.Object(layout.ReadmeKey(version.Format()))
	require.True(t, ok)
	require.Equal(t, archiver.Readme(), readme.Data)

	last, ok := store.Object(layout.LastUpdateKey)
	require.True(t, ok)
	require.Equal(t, "2026-03-04 05:06:07", string(last.Data))

	dataKeys := store.Keys(layout.DataPrefix)
	indexKeys := store.Keys(layout.IndexPrefix)
	streamKeys := store.Keys(layout.StreamPrefix)
	store.ResetCalls()

	stats, err = arch.Archive(ctx, []string{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Known)
	require.Zero(t, stats.Uploaded)
	require.Zero(t, stats.Indexed)

	// only LAST_UPDATE.txt is rewritten
	require.Equal(t, 1, store.Calls().Uploaded)
	require.Equal(t, dataKeys, store.Keys(layout.DataPrefix))
	require.Equal(t, indexKeys, store.Keys(layout.IndexPrefix))
	require.Equal(t, streamKeys, store.Keys(layout.StreamPrefix))
}

func TestArchiveDeduplicates(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dir := ctx.Dir("src")
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "copy", "a.txt")
	writeFile(t, a, "same contents", 1000)
	writeFile(t, b, "same contents", 1500)

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	stats, err := newArchiver(t, store, cache, archiver.Config{}).Archive(ctx, []string{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 1, stats.Existing)
	require.Equal(t, 2, stats.Indexed)

	data := digest.Bytes([]byte("same contents"))
	require.Equal(t, []string{layout.DataKey(data)}, store.Keys(layout.DataPrefix))
	require.Len(t, store.Keys(layout.IndexDir(data)), 2)
	require.Len(t, store.Keys(layout.StreamPrefix), 2)
}

func TestArchiveEmptyCacheReverifies(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	path := filepath.Join(ctx.Dir("src"), "a.txt")
	writeFile(t, path, "alpha", 1000)

	store := teststore.New()

	first := kvcache.New(kvteststore.New())
	defer ctx.Check(first.Close)
	_, err := newArchiver(t, store, first, archiver.Config{}).Archive(ctx, []string{path})
	require.NoError(t, err)

	store.ResetCalls()

	second, err := sqlitecache.Open(ctx, zaptest.NewLogger(t), filepath.Join(ctx.Dir("cache"), "cache.sqlite3"))
	require.NoError(t, err)
	defer ctx.Check(second.Close)

	stats, err := newArchiver(t, store, second, archiver.Config{}).Archive(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Existing)
	require.Zero(t, stats.Uploaded)
	require.Zero(t, stats.Indexed)
	require.Equal(t, 1, store.Calls().Uploaded)
	require.Len(t, store.Keys(layout.StreamPrefix), 1)

	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	_, found, err := second.Lookup(ctx, changecache.Key{AbsPath: resolved, MTime: time.Unix(1000, 0), Size: 5})
	require.NoError(t, err)
	require.True(t, found)
}

func TestArchiveConflict(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	path := filepath.Join(ctx.Dir("src"), "growing.log")
	writeFile(t, path, "first line\n", 1000)

	store := teststore.New()
	store.BeforeCommit = func(key string) error {
		if strings.HasPrefix(key, layout.DataPrefix) {
			writeFile(t, path, "first line\nsecond line\n", 1001)
		}
		return nil
	}

	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)
	arch := newArchiver(t, store, cache, archiver.Config{})

	stats, err := arch.Archive(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Conflicts)
	require.Zero(t, stats.Uploaded)
	require.Empty(t, store.Keys(layout.DataPrefix))
	require.Empty(t, store.Keys(layout.IndexPrefix))
	require.Empty(t, store.Keys(layout.StreamPrefix))

	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	_, found, err := cache.Lookup(ctx, changecache.Key{AbsPath: resolved, MTime: time.Unix(1000, 0), Size: 11})
	require.NoError(t, err)
	require.False(t, found)

	store.BeforeCommit = nil

	stats, err = arch.Archive(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, []string{layout.DataKey(digest.Bytes([]byte("first line\nsecond line\n")))}, store.Keys(layout.DataPrefix))
}

func TestArchiveContinuesAfterFailure(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dir := ctx.Dir("src")
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	writeFile(t, a, "alpha", 1000)
	writeFile(t, b, "bravo", 2000)

	failing := layout.DataKey(digest.Bytes([]byte("alpha")))
	store := teststore.New()
	store.BeforeCommit = func(key string) error {
		if key == failing {
			return errs.New("network down")
		}
		return nil
	}

	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	stats, err := newArchiver(t, store, cache, archiver.Config{}).Archive(ctx, []string{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Uploaded)

	_, ok := store.Object(layout.LastUpdateKey)
	require.True(t, ok)
}

func TestArchiveSkips(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dir := ctx.Dir("src")
	target := filepath.Join(dir, "target.txt")
	link := filepath.Join(dir, "link.txt")
	writeFile(t, target, "target", 1000)
	require.NoError(t, os.Symlink(target, link))

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	stats, err := newArchiver(t, store, cache, archiver.Config{}).Archive(ctx, []string{
		dir,
		filepath.Join(dir, "missing.txt"),
		link,
		target,
	})
	require.NoError(t, err)
	require.Equal(t, 4, stats.Files)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.Missing)
	require.Equal(t, 1, stats.Uploaded)
	// the link resolves to the target, which is then already known
	require.Equal(t, 1, stats.Known)

	index := store.Keys(layout.IndexPrefix)
	require.Len(t, index, 1)
	payload, ok := store.Object(index[0])
	require.True(t, ok)
	record, err := layout.ParseMetadata(payload.Data)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	require.Equal(t, resolved, record.Path)
}

func TestArchiveLines(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dir := ctx.Dir("src")
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	writeFile(t, a, "alpha", 1000)
	writeFile(t, b, "bravo", 2000)

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	input := a + "\r\n\n" + b + "\n\n"
	stats, err := newArchiver(t, store, cache, archiver.Config{}).ArchiveLines(ctx, strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, stats.Files)
	require.Equal(t, 2, stats.Uploaded)
}

func TestArchiveLifecycle(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	arch := newArchiver(t, store, cache, archiver.Config{DaysToGlacier: 30})
	for i := 0; i < 2; i++ {
		_, err := arch.Archive(ctx, nil)
		require.NoError(t, err)
	}
	require.Equal(t, map[string]string{archiver.LifecycleRuleID: layout.DataPrefix}, store.Lifecycle())

	// stores without a cold tier only warn
	files, err := filestore.NewAt(zaptest.NewLogger(t), ctx.Dir("store"))
	require.NoError(t, err)
	_, err = newArchiver(t, files, cache, archiver.Config{DaysToGlacier: 30}).Archive(ctx, nil)
	require.NoError(t, err)
}

func TestArchiveCanceled(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := teststore.New()
	cache := kvcache.New(kvteststore.New())
	defer ctx.Check(cache.Close)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := newArchiver(t, store, cache, archiver.Config{}).Archive(canceled, []string{"a"})
	require.Error(t, err)
}
