// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package rebuild reconstructs the archived file tree from a downloaded archive.
package rebuild

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/digest"
	"storj.io/minus80/archive/layout"
)

var (
	mon = monkit.Package()

	// Error is the default rebuild error class.
	Error = errs.Class("rebuild")
	// ErrMTime is returned when the content is in place but its mtime could
	// not be set.
	ErrMTime = errs.Class("rebuild mtime")
)

// Stats counts the outcomes of a rebuild run.
type Stats struct {
	Records    int
	Invalid    int
	Rebuilt    int
	Existing   int
	Superseded int
	Failed     int
}

// Record is a metadata record read from the downloaded index.
type Record struct {
	layout.MetadataRecord
	Info digest.Digest
}

// Rebuilder copies downloaded content back to its original paths.
type Rebuilder struct {
	log *zap.Logger
}

// New creates a rebuilder.
func New(log *zap.Logger) *Rebuilder {
	return &Rebuilder{log: log}
}

// Rebuild restores every file described by the index below downloadedRoot
// into destRoot. When several records name the same path the one with the
// newest mtime wins.
func (rebuilder *Rebuilder) Rebuild(ctx context.Context, downloadedRoot, destRoot string) (stats Stats, err error) {
	defer mon.Task()(&ctx)(&err)

	destRoot, err = filepath.Abs(destRoot)
	if err != nil {
		return stats, Error.Wrap(err)
	}

	records, invalid, err := rebuilder.Load(ctx, downloadedRoot)
	if err != nil {
		return stats, err
	}
	stats.Invalid = invalid

	claimed := map[string]struct{}{}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Records++

		dest, err := Destination(destRoot, record.Path)
		if err != nil {
			stats.Failed++
			rebuilder.log.Error("rebuild-failed", zap.String("path", record.Path), zap.Error(err))
			continue
		}

		if _, ok := claimed[dest]; ok {
			stats.Superseded++
			rebuilder.log.Debug("rebuild-superseded", zap.String("path", dest), zap.Stringer("info", record.Info))
			continue
		}

		// a failed copy leaves the destination to older records
		copied, err := rebuilder.restore(ctx, downloadedRoot, dest, record)
		if err == nil || ErrMTime.Has(err) {
			claimed[dest] = struct{}{}
		}
		switch {
		case err != nil:
			stats.Failed++
			mon.Counter("rebuild_failed").Inc(1)
			rebuilder.log.Error("rebuild-failed", zap.String("path", dest), zap.Error(err))
		case copied:
			stats.Rebuilt++
			mon.Counter("rebuild_done").Inc(1)
			rebuilder.log.Info("rebuild-done", zap.String("path", dest))
		default:
			stats.Existing++
			rebuilder.log.Info("rebuild-exists", zap.String("path", dest))
		}
	}

	rebuilder.log.Info("rebuild-complete",
		zap.Int("records", stats.Records),
		zap.Int("rebuilt", stats.Rebuilt),
		zap.Int("existing", stats.Existing),
		zap.Int("superseded", stats.Superseded),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

// Load reads every metadata record below downloadedRoot/index, newest first.
// Unparsable records are logged and counted.
func (rebuilder *Rebuilder) Load(ctx context.Context, downloadedRoot string) (records []Record, invalid int, err error) {
	defer mon.Task()(&ctx)(&err)

	indexRoot := filepath.Join(downloadedRoot, strings.TrimSuffix(layout.IndexPrefix, "/"))
	if _, err := os.Stat(indexRoot); err != nil {
		return nil, 0, Error.New("no downloaded index: %v", err)
	}

	err = filepath.WalkDir(indexRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		metadata, err := layout.ParseMetadata(data)
		if err != nil {
			invalid++
			rebuilder.log.Warn("rebuild-invalid", zap.String("file", path), zap.Error(err))
			return nil
		}
		records = append(records, Record{MetadataRecord: metadata, Info: digest.Bytes(data)})
		return nil
	})
	if err != nil {
		return nil, invalid, Error.Wrap(err)
	}

	Sort(records)
	return records, invalid, nil
}

// Sort orders records newest first. Ties are broken by path and then by
// the record digest so the order never depends on the directory walk.
func Sort(records []Record) {
	sort.Slice(records, func(i, k int) bool {
		a, b := records[i], records[k]
		if !a.MTime.Equal(b.MTime) {
			return a.MTime.After(b.MTime)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Info < b.Info
	})
}

// Destination returns where a file archived at path is restored below destRoot.
func Destination(destRoot, path string) (string, error) {
	path = strings.TrimPrefix(path, filepath.VolumeName(path))
	dest := filepath.Join(destRoot, path)

	rel, err := filepath.Rel(destRoot, dest)
	if err != nil {
		return "", Error.Wrap(err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", Error.New("%q escapes the destination", path)
	}
	return dest, nil
}

// restore copies the content of record to dest unless dest already has the
// same size, then applies the record mtime.
func (rebuilder *Rebuilder) restore(ctx context.Context, downloadedRoot, dest string, record Record) (copied bool, err error) {
	defer mon.Task()(&ctx)(&err)

	src, err := layout.DataPath(downloadedRoot, record.Data)
	if err != nil {
		return false, Error.Wrap(err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, Error.New("missing content %s: %v", record.Data, err)
	}

	destInfo, err := os.Stat(dest)
	switch {
	case err == nil && destInfo.Mode().IsRegular() && destInfo.Size() == srcInfo.Size():
	case err == nil && !destInfo.Mode().IsRegular():
		return false, Error.New("%q is not a regular file", dest)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, Error.Wrap(err)
	default:
		if err := copyFile(src, dest); err != nil {
			return false, err
		}
		copied = true
	}

	return copied, ErrMTime.Wrap(os.Chtimes(dest, record.MTime, record.MTime))
}

func copyFile(src, dest string) (err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Error.Wrap(err)
	}

	in, err := os.Open(src)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, in.Close()) }()

	tmp, err := os.CreateTemp(dir, ".rebuild-*.partial")
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			err = errs.Combine(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return Error.Wrap(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return Error.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(os.Rename(tmp.Name(), dest))
}
