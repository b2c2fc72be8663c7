// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testsuite contains the shared tests for kvstore.Store implementations.
package testsuite

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/private/kvstore"
	"storj.io/minus80/private/testcontext"
)

// RunTests runs common kvstore.Store tests.
func RunTests(t *testing.T, store kvstore.Store) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, store) })
	t.Run("Range", func(t *testing.T) { testRange(t, store) })
}

func testCRUD(t *testing.T, store kvstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := kvstore.Key("crud/key")

	_, err := store.Get(ctx, key)
	require.True(t, kvstore.ErrKeyNotFound.Has(err), "%+v", err)

	require.NoError(t, store.Put(ctx, key, kvstore.Value("first")))
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("first"), value)

	require.NoError(t, store.Put(ctx, key, kvstore.Value("second")))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("second"), value)

	require.True(t, kvstore.ErrEmptyKey.Has(store.Put(ctx, nil, kvstore.Value("x"))))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.True(t, kvstore.ErrKeyNotFound.Has(err), "%+v", err)
}

func testRange(t *testing.T, store kvstore.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	expected := []string{"range/a", "range/b", "range/c\x00with\x00nul"}
	for _, key := range expected {
		require.NoError(t, store.Put(ctx, kvstore.Key(key), kvstore.Value("v:"+key)))
	}
	defer func() {
		for _, key := range expected {
			_ = store.Delete(ctx, kvstore.Key(key))
		}
	}()

	var got []string
	err := store.Range(ctx, func(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
		require.Equal(t, "v:"+string(key), string(value))
		got = append(got, string(key))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	require.Equal(t, expected, got)
}
