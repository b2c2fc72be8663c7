// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package download mirrors an archive into a local sharded directory tree.
package download

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/minus80/archive/layout"
	"storj.io/minus80/objectstore"
)

var (
	mon = monkit.Package()

	// Error is the default download error class.
	Error = errs.Class("download")
)

// Config contains configurable values for downloading.
type Config struct {
	Concurrency int `help:"number of objects downloaded in parallel" default:"4"`
}

// Stats counts the outcomes of a download run.
type Stats struct {
	Objects    int
	Downloaded int
	Existing   int
	Frozen     int
	Failed     int

	DownloadedBytes int64
}

// Progress observes a download run.
type Progress interface {
	// Start is called once with the totals of the listing.
	Start(objects int, bytes int64)
	// Done is called when an object has been handled, whatever the outcome.
	Done(info objectstore.ObjectInfo)
}

// Downloader copies every remote object to its sharded local path.
type Downloader struct {
	log      *zap.Logger
	store    objectstore.Store
	config   Config
	progress Progress
}

// New creates a downloader.
func New(log *zap.Logger, store objectstore.Store, config Config) *Downloader {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Downloader{
		log:    log,
		store:  store,
		config: config,
	}
}

// SetProgress sets the observer of subsequent runs.
func (downloader *Downloader) SetProgress(progress Progress) { downloader.progress = progress }

// Download mirrors the whole archive below destRoot. Objects already present
// with the remote size are skipped, so an interrupted run can be repeated.
func (downloader *Downloader) Download(ctx context.Context, destRoot string) (stats Stats, err error) {
	defer mon.Task()(&ctx)(&err)

	var infos []objectstore.ObjectInfo
	var total int64
	err = downloader.store.List(ctx, objectstore.ListOptions{}, func(info objectstore.ObjectInfo) error {
		infos = append(infos, info)
		total += info.Size
		return nil
	})
	if err != nil {
		return stats, Error.Wrap(err)
	}

	if downloader.progress != nil {
		downloader.progress.Start(len(infos), total)
	}

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(downloader.config.Concurrency)

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			break
		}

		info := info
		group.Go(func() error {
			outcome, n, err := downloader.downloadObject(ctx, destRoot, info)

			mu.Lock()
			defer mu.Unlock()

			stats.Objects++
			switch {
			case err != nil:
				stats.Failed++
				mon.Counter("download_failed").Inc(1)
				downloader.log.Error("download-failed", zap.String("key", info.Key), zap.Error(err))
			case outcome == outcomeExists:
				stats.Existing++
			case outcome == outcomeFrozen:
				stats.Frozen++
			case outcome == outcomeDone:
				stats.Downloaded++
				stats.DownloadedBytes += n
			}
			if downloader.progress != nil {
				downloader.progress.Done(info)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return stats, Error.Wrap(err)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	downloader.log.Info("download-complete",
		zap.Int("objects", stats.Objects),
		zap.Int("downloaded", stats.Downloaded),
		zap.Int("existing", stats.Existing),
		zap.Int("frozen", stats.Frozen),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeExists
	outcomeFrozen
)

func (downloader *Downloader) downloadObject(ctx context.Context, destRoot string, info objectstore.ObjectInfo) (_ outcome, _ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	rel, err := layout.LocalPath(info.Key)
	if err != nil {
		return 0, 0, err
	}
	local := filepath.Join(destRoot, rel)

	stat, err := os.Stat(local)
	switch {
	case err == nil && stat.Mode().IsRegular() && stat.Size() == info.Size:
		downloader.log.Debug("download-exists", zap.String("key", info.Key))
		return outcomeExists, 0, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return 0, 0, Error.Wrap(err)
	}

	if info.Frozen() {
		downloader.log.Warn("download-frozen", zap.String("key", info.Key))
		return outcomeFrozen, 0, nil
	}

	n, err := downloader.fetch(ctx, info, local)
	if objectstore.ErrFrozen.Has(err) {
		downloader.log.Warn("download-frozen", zap.String("key", info.Key))
		return outcomeFrozen, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	mon.Counter("download_done").Inc(1)
	downloader.log.Info("download-done", zap.String("key", info.Key), zap.String("path", local))
	return outcomeDone, n, nil
}

// fetch writes the object to a temporary file next to local and renames it
// into place once complete.
func (downloader *Downloader) fetch(ctx context.Context, info objectstore.ObjectInfo, local string) (_ int64, err error) {
	dir := filepath.Dir(local)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, Error.Wrap(err)
	}

	r, err := downloader.store.Get(ctx, info.Key)
	if err != nil {
		return 0, err
	}
	defer func() { err = errs.Combine(err, r.Close()) }()

	tmp, err := os.CreateTemp(dir, ".download-*.partial")
	if err != nil {
		return 0, Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			err = errs.Combine(err, os.Remove(tmp.Name()))
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	if n != info.Size {
		return 0, Error.New("%q: received %d bytes, expected %d", info.Key, n, info.Size)
	}
	if err := tmp.Sync(); err != nil {
		return 0, Error.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return 0, Error.Wrap(err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return 0, Error.Wrap(err)
	}
	return n, nil
}
