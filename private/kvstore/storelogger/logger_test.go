// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package storelogger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storj.io/minus80/private/kvstore"
	"storj.io/minus80/private/kvstore/teststore"
	"storj.io/minus80/private/kvstore/testsuite"
	"storj.io/minus80/private/testcontext"
)

func TestSuite(t *testing.T) {
	store := teststore.New()
	logged := New(zap.NewNop(), store)
	testsuite.RunTests(t, logged)
}

func TestEvents(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	core, logs := observer.New(zapcore.DebugLevel)
	store := New(zap.New(core), teststore.New())

	require.NoError(t, store.Put(ctx, kvstore.Key("/a\x001\x002"), kvstore.Value("v")))
	_, err := store.Get(ctx, kvstore.Key("missing"))
	require.True(t, kvstore.ErrKeyNotFound.Has(err))
	require.Error(t, store.Delete(ctx, kvstore.Key("missing")))

	require.Equal(t, 1, logs.FilterMessage("kv-put").FilterField(zap.String("key", "/a 1 2")).Len())
	require.Equal(t, 1, logs.FilterMessage("kv-miss").Len())
	require.Equal(t, 1, logs.FilterMessage("kv-delete-failed").Len())
}
