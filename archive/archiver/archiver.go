// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package archiver uploads local files into a content-addressed archive.
package archiver

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/layout"
	"storj.io/minus80/objectstore"
	"storj.io/minus80/private/version"
)

var (
	mon = monkit.Package()

	// Error is the default archiver error class.
	Error = errs.Class("archiver")
	// ErrConflict is returned when a file changed while it was uploaded.
	ErrConflict = errs.Class("conflict")
)

// LifecycleRuleID identifies the bucket rule that moves content to the cold tier.
const LifecycleRuleID = "minus80_data_archive_rule"

//go:embed README.txt
var readme []byte

// Readme returns the format documentation stored in every archive.
func Readme() []byte { return append([]byte(nil), readme...) }

// Config contains configurable values for the archiver.
type Config struct {
	DaysToGlacier int `help:"move archived content to the cold tier after this many days, 0 disables" default:"0"`
}

// Stats counts the outcomes of an archive run.
type Stats struct {
	Files     int
	Skipped   int
	Missing   int
	Known     int
	Uploaded  int
	Existing  int
	Indexed   int
	Conflicts int
	Failed    int

	UploadedBytes int64
}

// Archiver uploads files and records them in the change cache.
type Archiver struct {
	log    *zap.Logger
	store  objectstore.Store
	cache  changecache.DB
	config Config

	now func() time.Time
}

// New creates a new archiver.
func New(log *zap.Logger, store objectstore.Store, cache changecache.DB, config Config) *Archiver {
	return &Archiver{
		log:    log,
		store:  store,
		cache:  cache,
		config: config,
		now:    time.Now,
	}
}

// SetNow replaces the clock used for stream keys and cache timestamps.
func (archiver *Archiver) SetNow(now func() time.Time) { archiver.now = now }

// ArchiveLines archives the newline separated paths read from r.
// Blank lines are ignored.
func (archiver *Archiver) ArchiveLines(ctx context.Context, r io.Reader) (_ Stats, err error) {
	defer mon.Task()(&ctx)(&err)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	return archiver.run(ctx, func(fn func(path string) error) error {
		for scanner.Scan() {
			path := strings.TrimRight(scanner.Text(), "\r\n")
			if path == "" {
				continue
			}
			if err := fn(path); err != nil {
				return err
			}
		}
		return Error.Wrap(scanner.Err())
	})
}

// Archive archives paths. Per-file failures are logged and counted; the
// returned error reports only failures that affect the whole run.
func (archiver *Archiver) Archive(ctx context.Context, paths []string) (_ Stats, err error) {
	defer mon.Task()(&ctx)(&err)

	return archiver.run(ctx, func(fn func(path string) error) error {
		for _, path := range paths {
			if err := fn(path); err != nil {
				return err
			}
		}
		return nil
	})
}

func (archiver *Archiver) run(ctx context.Context, each func(fn func(path string) error) error) (stats Stats, err error) {
	if err := archiver.prepare(ctx); err != nil {
		return stats, err
	}

	err = each(func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Files++
		archiver.archiveFile(ctx, path, &stats)
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return stats, err
	}

	stamp := archiver.now().UTC().Format(layout.LastUpdateFormat)
	_, lastErr := objectstore.PutBytes(ctx, archiver.store, layout.LastUpdateKey, []byte(stamp), true)
	if lastErr != nil {
		archiver.log.Error("last-update-failed", zap.Error(lastErr))
	}

	archiver.log.Info("archive-complete",
		zap.Int("files", stats.Files),
		zap.Int("known", stats.Known),
		zap.Int("uploaded", stats.Uploaded),
		zap.Int("conflicts", stats.Conflicts),
		zap.Int("failed", stats.Failed))

	return stats, errs.Combine(err, lastErr)
}

// prepare writes the maintenance objects that must exist before any file.
func (archiver *Archiver) prepare(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if archiver.config.DaysToGlacier > 0 {
		if err := archiver.ensureLifecycle(ctx); err != nil {
			return err
		}
	}

	key := layout.ReadmeKey(version.Format())
	written, err := objectstore.PutBytes(ctx, archiver.store, key, readme, false)
	if err != nil {
		return Error.New("unable to write %q: %v", key, err)
	}
	if written {
		archiver.log.Info("readme-done", zap.String("key", key))
	}
	return nil
}

func (archiver *Archiver) ensureLifecycle(ctx context.Context) error {
	manager, ok := archiver.store.(objectstore.LifecycleManager)
	if !ok {
		archiver.log.Warn("lifecycle-unsupported")
		return nil
	}

	added, err := manager.EnsureTransition(ctx, LifecycleRuleID, layout.DataPrefix, archiver.config.DaysToGlacier)
	switch {
	case objectstore.ErrUnsupported.Has(err):
		archiver.log.Warn("lifecycle-unsupported", zap.Error(err))
		return nil
	case err != nil:
		return Error.New("unable to set lifecycle rule: %v", err)
	case added:
		archiver.log.Info("set-lifecycle", zap.String("rule", LifecycleRuleID), zap.Int("days", archiver.config.DaysToGlacier))
	default:
		archiver.log.Debug("has-lifecycle", zap.String("rule", LifecycleRuleID))
	}
	return nil
}

// archiveFile archives a single path and never fails the batch.
func (archiver *Archiver) archiveFile(ctx context.Context, path string, stats *Stats) {
	err := archiver.archive(ctx, path, stats)
	switch {
	case err == nil:
	case ErrConflict.Has(err):
		stats.Conflicts++
		mon.Counter("conflict_detected").Inc(1)
	default:
		stats.Failed++
		mon.Counter("archive_failed").Inc(1)
		archiver.log.Error("archive-failed", zap.String("path", path), zap.Error(err))
	}
}

func (archiver *Archiver) archive(ctx context.Context, path string, stats *Stats) (err error) {
	defer mon.Task()(&ctx)(&err)

	abs, err := filepath.Abs(path)
	if err != nil {
		return Error.Wrap(err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		stats.Missing++
		archiver.log.Warn("does-not-exist", zap.String("path", path))
		return nil
	}
	if err != nil {
		return Error.Wrap(err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Error.Wrap(err)
	}
	if info.IsDir() {
		stats.Skipped++
		archiver.log.Info("skip-dir", zap.String("path", abs))
		return nil
	}
	if !info.Mode().IsRegular() {
		stats.Skipped++
		archiver.log.Info("skip-special", zap.String("path", abs))
		return nil
	}

	key := changecache.Key{AbsPath: abs, MTime: info.ModTime(), Size: info.Size()}
	known, found, err := archiver.cache.Lookup(ctx, key)
	if err != nil {
		return Error.Wrap(err)
	}
	if found {
		stats.Known++
		archiver.log.Info("skip-known", zap.String("path", abs), zap.Time("updated", known.UpdatedAt))
		return nil
	}

	file, err := os.Open(abs)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, file.Close()) }()

	data, err := digest.Reader(file)
	if err != nil {
		return Error.Wrap(err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Error.Wrap(err)
	}

	record := layout.MetadataRecord{
		Path:  abs,
		Size:  info.Size(),
		MTime: info.ModTime(),
		Data:  data,
	}
	canonical, err := record.Canonical()
	if err != nil {
		return Error.Wrap(err)
	}
	infoDigest := digest.Bytes(canonical)

	dataKey := layout.DataKey(data)
	archiver.log.Debug("upload-ready", zap.String("key", dataKey), zap.String("path", abs))
	fresh, err := archiver.store.Put(ctx, dataKey, file, info.Size(), false)
	if err != nil {
		return Error.Wrap(err)
	}

	if fresh {
		after, err := os.Stat(abs)
		if err != nil || !after.ModTime().Equal(info.ModTime()) || after.Size() != info.Size() {
			archiver.log.Warn("conflict-detected", zap.String("key", dataKey), zap.String("path", abs))
			if delErr := archiver.store.Delete(ctx, dataKey); delErr != nil {
				archiver.log.Error("conflict-delete-failed", zap.String("key", dataKey), zap.Error(delErr))
			}
			return ErrConflict.New("%q changed during upload", abs)
		}
		stats.Uploaded++
		stats.UploadedBytes += info.Size()
		mon.Counter("upload_done").Inc(1)
		archiver.log.Info("upload-done", zap.String("key", dataKey), zap.String("path", abs))
	} else {
		stats.Existing++
		archiver.log.Info("upload-exists", zap.String("key", dataKey), zap.String("path", abs))
	}

	indexKey := layout.IndexKey(data, infoDigest)
	written, err := objectstore.PutBytes(ctx, archiver.store, indexKey, canonical, fresh)
	if err != nil {
		return Error.Wrap(err)
	}

	now := archiver.now()
	if written {
		stats.Indexed++
		archiver.log.Info("index-done", zap.String("key", indexKey), zap.String("path", abs))

		streamKey := layout.StreamKey(now, infoDigest)
		if _, err := objectstore.PutBytes(ctx, archiver.store, streamKey, canonical, true); err != nil {
			return Error.Wrap(err)
		}
		archiver.log.Debug("stream-done", zap.String("key", streamKey))
	} else {
		archiver.log.Info("index-exists", zap.String("key", indexKey), zap.String("path", abs))
	}

	return Error.Wrap(archiver.cache.Record(ctx, changecache.FileRecord{
		AbsPath:    abs,
		MTime:      info.ModTime(),
		Size:       info.Size(),
		InfoDigest: infoDigest,
		DataDigest: data,
		UpdatedAt:  now,
	}))
}
