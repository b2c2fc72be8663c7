// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testsuite contains the shared tests for objectstore.Store
// implementations.
package testsuite

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/objectstore"
	"storj.io/minus80/private/testcontext"
)

// RunTests runs the common objectstore.Store tests against store.
func RunTests(t *testing.T, store objectstore.Store) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, store) })
	t.Run("NoOverwrite", func(t *testing.T) { testNoOverwrite(t, store) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, store) })
	t.Run("List", func(t *testing.T) { testList(t, store) })
}

func testPutGet(t *testing.T, store objectstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "data/0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Get(ctx, key)
	require.True(t, objectstore.ErrNotFound.Has(err), "%+v", err)

	transferred, err := objectstore.PutBytes(ctx, store, key, []byte("foo"), false)
	require.NoError(t, err)
	require.True(t, transferred)

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	data, err := objectstore.GetBytes(ctx, store, key)
	require.NoError(t, err)
	require.Equal(t, []byte("foo"), data)

	// empty objects are valid
	transferred, err = objectstore.PutBytes(ctx, store, "LAST_UPDATE.txt", nil, true)
	require.NoError(t, err)
	require.True(t, transferred)
	data, err = objectstore.GetBytes(ctx, store, "LAST_UPDATE.txt")
	require.NoError(t, err)
	require.Empty(t, data)
}

func testNoOverwrite(t *testing.T, store objectstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "index/62cdb7020ff920e5aa642c3d4066950dd1f01f4d/7c4a8d09ca3762af61e59520943dc26494f8941b.json"

	transferred, err := objectstore.PutBytes(ctx, store, key, []byte("first"), false)
	require.NoError(t, err)
	require.True(t, transferred)

	transferred, err = objectstore.PutBytes(ctx, store, key, []byte("second"), false)
	require.NoError(t, err)
	require.False(t, transferred)

	data, err := objectstore.GetBytes(ctx, store, key)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), data)

	transferred, err = objectstore.PutBytes(ctx, store, key, []byte("third"), true)
	require.NoError(t, err)
	require.True(t, transferred)

	data, err = objectstore.GetBytes(ctx, store, key)
	require.NoError(t, err)
	require.Equal(t, []byte("third"), data)

	// a short reader is an error and leaves nothing behind
	short := "data/5ba93c9db0cff93f52b521d7420e43f6eda2784f"
	_, err = store.Put(ctx, short, bytes.NewReader([]byte("ab")), 3, false)
	require.Error(t, err)
	exists, err := store.Exists(ctx, short)
	require.NoError(t, err)
	require.False(t, exists)
}

func testDelete(t *testing.T, store objectstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "data/a9993e364706816aba3e25717850c26c9cd0d89d"
	_, err := objectstore.PutBytes(ctx, store, key, []byte("abc"), false)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	err = store.Delete(ctx, key)
	require.True(t, objectstore.ErrNotFound.Has(err), "%+v", err)
}

func testList(t *testing.T, store objectstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	keys := []string{
		"stream/20260102T000000Z_356a192b7913b04c54574d18c28d46e6395428ab.json",
		"stream/20260101T000000Z_da4b9237bacccdf19c0760cab7aec4a8359010b0.json",
		"stream/20260103T000000Z_77de68daecd823babbb58edb1c8e14d7106e83bb.json",
	}
	for _, key := range keys {
		_, err := objectstore.PutBytes(ctx, store, key, []byte(key), false)
		require.NoError(t, err)
	}

	var listed []objectstore.ObjectInfo
	err := store.List(ctx, objectstore.ListOptions{Prefix: "stream/"}, func(info objectstore.ObjectInfo) error {
		listed = append(listed, info)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, keys[1], listed[0].Key)
	require.Equal(t, keys[0], listed[1].Key)
	require.Equal(t, keys[2], listed[2].Key)
	for _, info := range listed {
		require.Equal(t, int64(len(info.Key)), info.Size)
		require.False(t, info.Frozen())
	}

	count := 0
	err = store.List(ctx, objectstore.ListOptions{Prefix: "stream/20260103"}, func(info objectstore.ObjectInfo) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var after []string
	err = store.List(ctx, objectstore.ListOptions{
		Prefix:     "stream/",
		StartAfter: "stream/20260102T000000Z",
	}, func(info objectstore.ObjectInfo) error {
		after = append(after, info.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{keys[0], keys[2]}, after)

	after = nil
	err = store.List(ctx, objectstore.ListOptions{Prefix: "stream/", StartAfter: keys[0]}, func(info objectstore.ObjectInfo) error {
		after = append(after, info.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{keys[2]}, after)
}
