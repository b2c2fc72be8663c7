// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package thaw_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/layout"
	"storj.io/minus80/archive/thaw"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/objectstore/teststore"
	"storj.io/minus80/private/testcontext"
)

var now = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func frozenStore(contents ...string) (*teststore.Store, []string) {
	store := teststore.New()
	var keys []string
	for _, c := range contents {
		d := digest.Bytes([]byte(c))
		key := layout.DataKey(d)
		store.Add(key, []byte(c))
		store.Add(layout.IndexKey(d, digest.Bytes([]byte("info:"+c))), []byte("{}"))
		keys = append(keys, key)
	}
	store.Freeze(layout.DataPrefix)
	return store, keys
}

func newThaw(t *testing.T, store objectstore.Store, config thaw.Config) *thaw.Thaw {
	th, err := thaw.New(zaptest.NewLogger(t), store, thaw.NoPacing{}, config)
	require.NoError(t, err)
	th.SetNow(func() time.Time { return now })
	return th
}

func TestThawIdempotent(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store, keys := frozenStore("alpha", "bravo", "charlie")
	store.Add(layout.DataKey(digest.Bytes([]byte("hot"))), []byte("hot"))

	th := newThaw(t, store, thaw.Config{Days: 7, Tier: "Bulk"})

	result, err := th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Requested)
	require.Equal(t, 1, result.NotFrozen)
	require.EqualValues(t, len("alpha")+len("bravo")+len("charlie"), result.RequestedBytes)
	require.Equal(t, now.Add(thaw.RestoreLatency), result.CompleteBy)
	require.Equal(t, 3, store.Calls().RequestRestore)

	for _, key := range keys {
		obj, ok := store.Object(key)
		require.True(t, ok)
		require.Equal(t, objectstore.RestoreOngoing, obj.Restore)
		require.Equal(t, 7, obj.RestoreDays)
		require.Equal(t, objectstore.TierBulk, obj.RestoreTier)
	}

	// objects mid-restore are never requested twice
	result, err = th.Thaw(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Requested)
	require.Equal(t, 3, result.InProgress)
	require.Equal(t, 3, result.Thawing())
	require.Equal(t, 3, store.Calls().RequestRestore)

	store.CompleteRestores(now)

	result, err = th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Restored)
	require.Zero(t, result.Thawing())
	require.True(t, result.CompleteBy.IsZero())
	require.Equal(t, 3, store.Calls().RequestRestore)
}

func TestThawExpiredRestore(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store, _ := frozenStore("alpha")
	th := newThaw(t, store, thaw.Config{Days: 1})

	_, err := th.Thaw(ctx)
	require.NoError(t, err)
	store.CompleteRestores(now)

	th.SetNow(func() time.Time { return now.Add(48 * time.Hour) })
	result, err := th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Requested)
	require.Equal(t, 2, store.Calls().RequestRestore)
}

func TestThawContinuesAfterFailure(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store, keys := frozenStore("alpha", "bravo")
	store.FailRestore = func(key string) error {
		if key == keys[0] {
			return errs.New("throttled")
		}
		return nil
	}

	result, err := newThaw(t, store, thaw.Config{Days: 1}).Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Requested)
	require.False(t, result.Ready())
}

func TestThawAllRestoresFail(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store, _ := frozenStore("alpha", "bravo")
	store.FailRestore = func(key string) error { return errs.New("throttled") }

	core, logs := observer.New(zapcore.InfoLevel)
	th, err := thaw.New(zap.New(core), store, thaw.NoPacing{}, thaw.Config{Days: 1})
	require.NoError(t, err)
	th.SetNow(func() time.Time { return now })

	result, err := th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Failed)
	require.Zero(t, result.Thawing())
	require.False(t, result.Ready())
	require.True(t, result.CompleteBy.IsZero())

	require.Equal(t, 1, logs.FilterMessage("thaw-incomplete").Len())
	require.Zero(t, logs.FilterMessage("thaw-complete").Len())

	store.FailRestore = nil
	result, err = th.Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Requested)
	require.Zero(t, result.Failed)
}

func TestThawNothingFrozen(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := teststore.New()
	store.Add(layout.DataKey(digest.Bytes([]byte("hot"))), []byte("hot"))

	result, err := newThaw(t, store, thaw.Config{Days: 1}).Thaw(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.NotFrozen)
	require.Zero(t, result.Thawing())
	require.True(t, result.Ready())
	require.Zero(t, store.Calls().RequestRestore)
}

func TestNewValidates(t *testing.T) {
	store := teststore.New()

	_, err := thaw.New(zaptest.NewLogger(t), store, nil, thaw.Config{Days: 0})
	require.Error(t, err)

	_, err = thaw.New(zaptest.NewLogger(t), store, nil, thaw.Config{Days: 1, Tier: "Instant"})
	require.Error(t, err)
}
