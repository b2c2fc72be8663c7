// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/minus80/archive/changecache/cachetest"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/private/testcontext"
)

func TestOpenStore(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)

	store, err := openStore(ctx, log, StoreConfig{Backend: "FILE", Dir: ctx.Dir("store")})
	require.NoError(t, err)

	written, err := store.Put(ctx, "LAST_UPDATE.txt", strings.NewReader("now"), 3, true)
	require.NoError(t, err)
	require.True(t, written)

	ok, err := store.Exists(ctx, "LAST_UPDATE.txt")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = openStore(ctx, log, StoreConfig{Backend: "tape"})
	require.Error(t, err)
}

func TestOpenCache(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)
	server := miniredis.RunT(t)

	for _, config := range []CacheConfig{
		{Driver: DriverSqlite, Path: filepath.Join(ctx.Dir("sqlite"), "cache.sqlite3")},
		{Driver: DriverBolt, Path: filepath.Join(ctx.Dir("bolt"), "cache.db")},
		{Driver: DriverRedis, RedisURL: "redis://" + server.Addr() + "?db=2"},
	} {
		config := config
		t.Run(config.Driver, func(t *testing.T) {
			cache, err := openCache(ctx, log, config)
			require.NoError(t, err)
			defer ctx.Check(cache.Close)

			cachetest.RunTests(t, cache)
		})
	}

	_, err := openCache(ctx, log, CacheConfig{Driver: DriverRedis})
	require.Error(t, err)

	_, err = openCache(ctx, log, CacheConfig{Driver: "leveldb"})
	require.Error(t, err)
}

func TestParseSince(t *testing.T) {
	for _, tt := range []struct {
		in  string
		out time.Time
	}{
		{"", time.Time{}},
		{"2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2026-01-02 03:04:05", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2026-01-02T03:04:05Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	} {
		since, err := parseSince(tt.in)
		require.NoError(t, err, tt.in)
		require.True(t, tt.out.Equal(since), tt.in)
	}

	_, err := parseSince("yesterday")
	require.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := &progressBar{output: &out}

	// finishing an unstarted bar is a no-op
	bar.Finish()

	bar.Start(2, 300)
	bar.Done(objectstore.ObjectInfo{Key: "a", Size: 100})
	bar.Done(objectstore.ObjectInfo{Key: "b", Size: 200})
	require.EqualValues(t, 300, bar.bar.Current())
	bar.Finish()
}

func run(t *testing.T, ctx *testcontext.Context, stdin string, args ...string) string {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(ctx), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	src := ctx.Dir("src")
	a := filepath.Join(src, "a.txt")
	b := filepath.Join(src, "nested", "b.txt")
	for path, contents := range map[string]string{a: "alpha", b: "bravo"} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
		require.NoError(t, os.Chtimes(path, time.Unix(1000, 0), time.Unix(1000, 0)))
	}

	storeFlags := []string{"--store.backend", "file", "--store.dir", ctx.Dir("store")}
	cacheFlags := []string{"--cache.path", filepath.Join(ctx.Dir("cache"), "cache.sqlite3")}

	out := run(t, ctx, a+"\n\n"+b+"\n", append(append([]string{"archive"}, storeFlags...), cacheFlags...)...)
	require.Contains(t, out, "2 files: 2 uploaded")

	out = run(t, ctx, "", append(append([]string{"archive", a, b}, storeFlags...), cacheFlags...)...)
	require.Contains(t, out, "2 unchanged")

	out = run(t, ctx, "", append([]string{"history"}, storeFlags...)...)
	require.Contains(t, out, "a.txt")
	require.Contains(t, out, "b.txt")

	out = run(t, ctx, "", append([]string{"history", "--since", "2999-01-01"}, storeFlags...)...)
	require.Empty(t, strings.TrimSpace(out))

	downloaded := ctx.Dir("downloaded")
	out = run(t, ctx, "", append([]string{"download", downloaded}, storeFlags...)...)
	require.Contains(t, out, "0 failed")

	dest := ctx.Dir("dest")
	out = run(t, ctx, "", "rebuild", downloaded, dest)
	require.Contains(t, out, "2 rebuilt")

	realA, err := filepath.EvalSymlinks(a)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dest, realA))
	require.NoError(t, err)
	require.Equal(t, "alpha", string(data))

	out = run(t, ctx, "", "version")
	require.Contains(t, out, "minus80 v")
}

func TestSetup(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	path := filepath.Join(ctx.Dir("conf"), "config.yaml")

	run(t, ctx, "", "setup", "--config", path, "--store.backend", "file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "backend: file")

	rootCmd.SetArgs([]string{"setup", "--config", path})
	require.Error(t, rootCmd.ExecuteContext(ctx))
}
