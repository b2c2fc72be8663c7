// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package history replays the stream of archived metadata records.
package history

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/layout"
	"storj.io/minus80/objectstore"
)

var (
	mon = monkit.Package()

	// Error is the default history error class.
	Error = errs.Class("history")
)

// Entry is one archived file version, in archival order.
type Entry struct {
	Key      string
	Archived time.Time
	Info     digest.Digest
	Record   layout.MetadataRecord
}

// History lists stream records.
type History struct {
	log   *zap.Logger
	store objectstore.Store
}

// New creates a history lister.
func New(log *zap.Logger, store objectstore.Store) *History {
	return &History{log: log, store: store}
}

// List calls fn for every record archived at or after since, oldest first.
// A zero since lists everything. Unreadable records are logged and skipped.
func (history *History) List(ctx context.Context, since time.Time, fn func(Entry) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	opts := objectstore.ListOptions{Prefix: layout.StreamPrefix}
	if !since.IsZero() {
		// every key archived at or after since sorts after its cursor
		opts.StartAfter = layout.StreamCursor(since)
	}

	return Error.Wrap(history.store.List(ctx, opts, func(info objectstore.ObjectInfo) error {
		archived, infoDigest, err := layout.ParseStreamKey(info.Key)
		if err != nil {
			history.log.Warn("history-invalid", zap.String("key", info.Key), zap.Error(err))
			return nil
		}

		data, err := objectstore.GetBytes(ctx, history.store, info.Key)
		if err != nil {
			history.log.Warn("history-unreadable", zap.String("key", info.Key), zap.Error(err))
			return nil
		}

		record, err := layout.ParseMetadata(data)
		if err != nil {
			history.log.Warn("history-invalid", zap.String("key", info.Key), zap.Error(err))
			return nil
		}

		return fn(Entry{
			Key:      info.Key,
			Archived: archived,
			Info:     infoDigest,
			Record:   record,
		})
	}))
}
