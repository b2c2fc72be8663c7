// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package thaw requests the restore of archived objects from the cold tier.
package thaw

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/layout"
	"storj.io/minus80/objectstore"
)

var (
	mon = monkit.Package()

	// Error is the default thaw error class.
	Error = errs.Class("thaw")
)

// RestoreLatency bounds how long the cold tier takes to make an object readable.
const RestoreLatency = 5 * time.Hour

// Config contains configurable values for thawing.
type Config struct {
	Days   int    `help:"keep restored objects readable for this many days" default:"30"`
	Tier   string `help:"retrieval tier: Standard, Bulk or Expedited" default:"Standard"`
	Rate   string `help:"restore at most this many bytes per hour, 0 disables pacing" default:"1 GB"`
	Pacing string `help:"pacing policy: rate, sleep or none" default:"rate"`
	Prefix string `help:"key prefix of the objects to thaw" default:"data/"`
}

// Result summarizes a thaw run.
type Result struct {
	Requested  int
	InProgress int
	Restored   int
	NotFrozen  int
	Failed     int

	RequestedBytes int64
	// CompleteBy is when every requested restore should be done; zero when
	// nothing is thawing.
	CompleteBy time.Time
}

// Thawing returns the number of objects that are not yet readable.
func (result Result) Thawing() int { return result.Requested + result.InProgress }

// Ready returns whether every cold object is readable.
func (result Result) Ready() bool { return result.Thawing() == 0 && result.Failed == 0 }

// Thaw issues restore requests for frozen objects.
type Thaw struct {
	log    *zap.Logger
	store  objectstore.Store
	pacer  Pacer
	days   int
	tier   objectstore.RetrievalTier
	prefix string

	now func() time.Time
}

// New creates a thaw orchestrator.
func New(log *zap.Logger, store objectstore.Store, pacer Pacer, config Config) (*Thaw, error) {
	tier, err := objectstore.ParseTier(config.Tier)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if config.Days <= 0 {
		return nil, Error.New("restore days must be positive, got %d", config.Days)
	}
	if pacer == nil {
		pacer = NoPacing{}
	}
	prefix := config.Prefix
	if prefix == "" {
		prefix = layout.DataPrefix
	}

	return &Thaw{
		log:    log,
		store:  store,
		pacer:  pacer,
		days:   config.Days,
		tier:   tier,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// SetNow replaces the clock used for restore expiry and the completion estimate.
func (thaw *Thaw) SetNow(now func() time.Time) { thaw.now = now }

// Thaw requests a restore for every frozen object that is neither restored
// nor being restored. Running it again never repeats a request.
func (thaw *Thaw) Thaw(ctx context.Context) (result Result, err error) {
	defer mon.Task()(&ctx)(&err)

	err = thaw.store.List(ctx, objectstore.ListOptions{Prefix: thaw.prefix}, func(info objectstore.ObjectInfo) error {
		if !objectstore.IsCold(info.StorageClass) {
			result.NotFrozen++
			thaw.log.Debug("not-frozen", zap.String("key", info.Key))
			return nil
		}

		switch info.Restore {
		case objectstore.RestoreDone:
			if info.RestoreExpiry.IsZero() || info.RestoreExpiry.After(thaw.now()) {
				result.Restored++
				thaw.log.Debug("thaw-done", zap.String("key", info.Key), zap.Time("expiry", info.RestoreExpiry))
				return nil
			}
		case objectstore.RestoreOngoing:
			result.InProgress++
			thaw.log.Debug("thaw-in-progress", zap.String("key", info.Key))
			return nil
		}

		thaw.log.Debug("thaw-ready", zap.String("key", info.Key), zap.Int64("size", info.Size))
		if err := thaw.pacer.Wait(ctx, info.Size); err != nil {
			return err
		}

		if err := thaw.store.RequestRestore(ctx, info.Key, thaw.days, thaw.tier); err != nil {
			result.Failed++
			mon.Counter("thaw_failed").Inc(1)
			thaw.log.Error("thaw-failed", zap.String("key", info.Key), zap.Error(err))
			return nil
		}

		result.Requested++
		result.RequestedBytes += info.Size
		mon.Counter("thaw_started").Inc(1)
		thaw.log.Info("thaw-started", zap.String("key", info.Key), zap.Int64("size", info.Size))
		return nil
	})
	if err != nil {
		return result, Error.Wrap(err)
	}

	switch {
	case result.Thawing() > 0:
		result.CompleteBy = thaw.now().Add(RestoreLatency)
		thaw.log.Warn("thaw-pending",
			zap.Int("objects", result.Thawing()),
			zap.Int("failed", result.Failed),
			zap.String("requested", humanize.Bytes(uint64(result.RequestedBytes))),
			zap.Time("complete-by", result.CompleteBy))
	case result.Failed > 0:
		thaw.log.Warn("thaw-incomplete", zap.Int("failed", result.Failed), zap.String("next", "run thaw again"))
	default:
		thaw.log.Warn("thaw-complete", zap.Int("restored", result.Restored), zap.String("next", "ready to download"))
	}

	return result, nil
}
