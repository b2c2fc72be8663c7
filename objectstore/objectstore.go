// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package objectstore defines the remote key/value blob store an archive is
// kept in.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/zeebo/errs"
)

var (
	// Error is the default object store error class.
	Error = errs.Class("objectstore")
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errs.Class("object not found")
	// ErrFrozen is returned when reading an object that is in a cold tier and
	// has not been restored.
	ErrFrozen = errs.Class("object frozen")
	// ErrUnsupported is returned by stores that lack a capability.
	ErrUnsupported = errs.Class("unsupported")
)

// Storage classes reported by stores.
const (
	ClassStandard    = "STANDARD"
	ClassGlacier     = "GLACIER"
	ClassDeepArchive = "DEEP_ARCHIVE"
)

// IsCold returns whether objects in the storage class need a restore before
// they can be read.
func IsCold(class string) bool {
	return class == ClassGlacier || class == ClassDeepArchive
}

// RestoreStatus is the restore state of a cold object.
type RestoreStatus int

const (
	// RestoreNone means no restore was requested or the restored copy expired.
	RestoreNone RestoreStatus = iota
	// RestoreOngoing means a restore was requested and is not complete.
	RestoreOngoing
	// RestoreDone means a readable copy is available until the expiry.
	RestoreDone
)

// String implements fmt.Stringer.
func (status RestoreStatus) String() string {
	switch status {
	case RestoreNone:
		return "none"
	case RestoreOngoing:
		return "ongoing"
	case RestoreDone:
		return "done"
	default:
		return "unknown"
	}
}

// RetrievalTier selects the speed and price of a restore.
type RetrievalTier string

// Retrieval tiers.
const (
	TierStandard  RetrievalTier = "Standard"
	TierBulk      RetrievalTier = "Bulk"
	TierExpedited RetrievalTier = "Expedited"
)

// ParseTier parses a retrieval tier name.
func ParseTier(s string) (RetrievalTier, error) {
	switch tier := RetrievalTier(s); tier {
	case TierStandard, TierBulk, TierExpedited:
		return tier, nil
	case "":
		return TierStandard, nil
	}
	return "", Error.New("unknown retrieval tier %q", s)
}

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	Key           string
	Size          int64
	StorageClass  string
	Restore       RestoreStatus
	RestoreExpiry time.Time
}

// Frozen returns whether the object cannot be read without a restore.
func (info ObjectInfo) Frozen() bool {
	return IsCold(info.StorageClass) && info.Restore != RestoreDone
}

// ListOptions selects the objects of a listing.
type ListOptions struct {
	// Prefix restricts the listing to keys with the prefix.
	Prefix string
	// StartAfter, when set, skips keys that sort at or before it.
	StartAfter string
}

// Match returns whether key belongs to the listing.
func (opts ListOptions) Match(key string) bool {
	return strings.HasPrefix(key, opts.Prefix) && (opts.StartAfter == "" || key > opts.StartAfter)
}

// Store is a remote blob store.
type Store interface {
	// Exists returns whether key exists.
	Exists(ctx context.Context, key string) (bool, error)
	// Put uploads size bytes from r to key. Unless overwrite is set an existing
	// object is left alone. Returns whether data was transferred.
	Put(ctx context.Context, key string, r io.Reader, size int64, overwrite bool) (transferred bool, err error)
	// Get opens key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// List calls fn for every object matching opts, in lexicographic key order.
	List(ctx context.Context, opts ListOptions, fn func(ObjectInfo) error) error
	// RequestRestore asks for a cold object to be readable for days days.
	RequestRestore(ctx context.Context, key string, days int, tier RetrievalTier) error
}

// LifecycleManager is implemented by stores that can transition objects to a
// cold tier automatically.
type LifecycleManager interface {
	// EnsureTransition makes sure a rule with ruleID moves objects under prefix
	// to the cold tier after days days. Existing rules are not modified.
	// Returns whether a rule was added.
	EnsureTransition(ctx context.Context, ruleID, prefix string, days int) (added bool, err error)
}

// PutBytes uploads data to key.
func PutBytes(ctx context.Context, store Store, key string, data []byte, overwrite bool) (bool, error) {
	return store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), overwrite)
}

// GetBytes downloads the whole object at key.
func GetBytes(ctx context.Context, store Store, key string) (_ []byte, err error) {
	r, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { err = errs.Combine(err, r.Close()) }()

	data, err := io.ReadAll(r)
	return data, Error.Wrap(err)
}
