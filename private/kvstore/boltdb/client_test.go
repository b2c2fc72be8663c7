// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/private/kvstore"
	"storj.io/minus80/private/kvstore/testsuite"
	"storj.io/minus80/private/testcontext"
)

func TestSuite(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store, err := New(filepath.Join(ctx.Dir(), "bolt.db"), "files")
	require.NoError(t, err)
	defer ctx.Check(store.Close)

	testsuite.RunTests(t, store)
}

func TestReopen(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	path := filepath.Join(ctx.Dir(), "bolt.db")

	store, err := New(path, "files")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kvstore.Key("durable"), kvstore.Value("yes")))
	require.NoError(t, store.Close())

	store, err = New(path, "files")
	require.NoError(t, err)
	defer ctx.Check(store.Close)

	value, err := store.Get(ctx, kvstore.Key("durable"))
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("yes"), value)
}
