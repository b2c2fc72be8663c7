// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package layout defines the remote key layout of an archive and the
// records stored under it.
package layout

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/errs"

	"storj.io/minus80/archive/digest"
)

// Error is the default layout error class.
var Error = errs.Class("layout")

// ErrInvalidKey is returned for keys that cannot be mapped to a local path.
var ErrInvalidKey = errs.Class("invalid key")

// Namespaces of the remote archive.
const (
	DataPrefix   = "data/"
	IndexPrefix  = "index/"
	StreamPrefix = "stream/"

	LastUpdateKey = "LAST_UPDATE.txt"
)

const (
	// StreamTimeFormat is the ISO 8601 basic UTC format used in stream keys.
	StreamTimeFormat = "20060102T150405Z"
	// LastUpdateFormat is the format of the LAST_UPDATE.txt contents.
	LastUpdateFormat = "2006-01-02 15:04:05"
)

// DataKey returns the key of the content object with digest data.
func DataKey(data digest.Digest) string {
	return DataPrefix + string(data)
}

// IndexDir returns the prefix grouping all metadata records of data.
func IndexDir(data digest.Digest) string {
	return IndexPrefix + string(data) + "/"
}

// IndexKey returns the key of a metadata record.
func IndexKey(data, info digest.Digest) string {
	return IndexDir(data) + string(info) + ".json"
}

// StreamKey returns the key of a stream record written at t.
func StreamKey(t time.Time, info digest.Digest) string {
	return StreamPrefix + t.UTC().Format(StreamTimeFormat) + "_" + string(info) + ".json"
}

// StreamCursor returns the key prefix that sorts before every stream record
// written at or after t.
func StreamCursor(t time.Time) string {
	return StreamPrefix + t.UTC().Format(StreamTimeFormat)
}

// ReadmeKey returns the key of the format documentation for version.
func ReadmeKey(version string) string {
	return "README_" + version + ".txt"
}

// ParseStreamKey splits a stream key into its timestamp and info digest.
func ParseStreamKey(key string) (time.Time, digest.Digest, error) {
	name, ok := strings.CutPrefix(key, StreamPrefix)
	if !ok {
		return time.Time{}, "", ErrInvalidKey.New("not a stream key: %q", key)
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok {
		return time.Time{}, "", ErrInvalidKey.New("not a stream key: %q", key)
	}
	stamp, info, ok := strings.Cut(name, "_")
	if !ok {
		return time.Time{}, "", ErrInvalidKey.New("not a stream key: %q", key)
	}
	t, err := time.Parse(StreamTimeFormat, stamp)
	if err != nil {
		return time.Time{}, "", ErrInvalidKey.Wrap(err)
	}
	d, err := digest.Parse(info)
	if err != nil {
		return time.Time{}, "", ErrInvalidKey.Wrap(err)
	}
	return t, d, nil
}

// Shard splits a hash segment into 2+2+rest directory components.
// Segments too short to split are returned as a single component.
func Shard(segment string) []string {
	if len(segment) <= 4 {
		return []string{segment}
	}
	return []string{segment[:2], segment[2:4], segment[4:]}
}

// LocalPath maps a remote key to a relative local path. The leading hash
// segment of keys in the data and index namespaces is sharded, other keys
// map one to one.
func LocalPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", ErrInvalidKey.New("%q", key)
	}
	parts := strings.Split(key, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." || strings.ContainsRune(part, '\\') {
			return "", ErrInvalidKey.New("%q", key)
		}
	}

	if len(parts) >= 2 && (parts[0]+"/" == DataPrefix || parts[0]+"/" == IndexPrefix) {
		sharded := append([]string{parts[0]}, Shard(parts[1])...)
		parts = append(sharded, parts[2:]...)
	}
	return filepath.FromSlash(path.Join(parts...)), nil
}

// KeyFromLocalPath is the inverse of LocalPath.
func KeyFromLocalPath(rel string) (string, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidKey.New("%q", rel)
		}
	}

	namespace := parts[0] + "/"
	if (namespace == DataPrefix || namespace == IndexPrefix) &&
		len(parts) >= 4 && len(parts[1]) == 2 && len(parts[2]) == 2 {
		joined := append([]string{parts[0], parts[1] + parts[2] + parts[3]}, parts[4:]...)
		parts = joined
	}
	return strings.Join(parts, "/"), nil
}

// DataPath returns the local path of the content object data under root.
func DataPath(root string, data digest.Digest) (string, error) {
	rel, err := LocalPath(DataKey(data))
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}
