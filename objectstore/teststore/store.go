// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package teststore implements an in-memory object store for tests.
package teststore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"storj.io/minus80/objectstore"
)

var _ objectstore.Store = (*Store)(nil)
var _ objectstore.LifecycleManager = (*Store)(nil)

// Object is a stored object.
type Object struct {
	Data          []byte
	StorageClass  string
	Restore       objectstore.RestoreStatus
	RestoreExpiry time.Time
	RestoreDays   int
	RestoreTier   objectstore.RetrievalTier
}

// CallCount counts calls per operation. Uploaded and Downloaded count the
// calls that actually moved data.
type CallCount struct {
	Exists         int
	Put            int
	Get            int
	Delete         int
	List           int
	RequestRestore int
	Uploaded       int
	Downloaded     int
}

// Store implements an in-memory objectstore.Store.
type Store struct {
	// BeforeCommit, when set, is called after the data of a Put has been read
	// and before it is stored. Returning an error fails the Put.
	BeforeCommit func(key string) error
	// FailGet, when set, is consulted before every Get.
	FailGet func(key string) error
	// FailRestore, when set, is consulted before every RequestRestore.
	FailRestore func(key string) error

	mu        sync.Mutex
	objects   map[string]*Object
	calls     CallCount
	lifecycle map[string]string
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		objects:   map[string]*Object{},
		lifecycle: map[string]string{},
	}
}

// Calls returns a snapshot of the call counters.
func (store *Store) Calls() CallCount {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.calls
}

// ResetCalls zeroes the call counters.
func (store *Store) ResetCalls() {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls = CallCount{}
}

// Add stores data at key without counting a call.
func (store *Store) Add(key string, data []byte) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.objects[key] = &Object{
		Data:         append([]byte(nil), data...),
		StorageClass: objectstore.ClassStandard,
	}
}

// Object returns a copy of the object at key.
func (store *Store) Object(key string) (Object, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	obj, ok := store.objects[key]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Keys returns all keys with the prefix in sorted order.
func (store *Store) Keys(prefix string) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.keys(prefix)
}

func (store *Store) keys(prefix string) []string {
	var keys []string
	for key := range store.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Freeze moves every object with the prefix to the glacier class.
func (store *Store) Freeze(prefix string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for key, obj := range store.objects {
		if strings.HasPrefix(key, prefix) {
			obj.StorageClass = objectstore.ClassGlacier
			obj.Restore = objectstore.RestoreNone
			obj.RestoreExpiry = time.Time{}
		}
	}
}

// CompleteRestores finishes every ongoing restore.
func (store *Store) CompleteRestores(now time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, obj := range store.objects {
		if obj.Restore == objectstore.RestoreOngoing {
			obj.Restore = objectstore.RestoreDone
			obj.RestoreExpiry = now.Add(time.Duration(obj.RestoreDays) * 24 * time.Hour)
		}
	}
}

// Lifecycle returns the configured transition rules, rule ID to prefix.
func (store *Store) Lifecycle() map[string]string {
	store.mu.Lock()
	defer store.mu.Unlock()
	rules := map[string]string{}
	for id, prefix := range store.lifecycle {
		rules[id] = prefix
	}
	return rules
}

// Exists implements objectstore.Store.
func (store *Store) Exists(ctx context.Context, key string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls.Exists++
	_, ok := store.objects[key]
	return ok, nil
}

// Put implements objectstore.Store.
func (store *Store) Put(ctx context.Context, key string, r io.Reader, size int64, overwrite bool) (bool, error) {
	store.mu.Lock()
	store.calls.Put++
	_, exists := store.objects[key]
	store.mu.Unlock()

	if exists && !overwrite {
		return false, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return false, objectstore.Error.Wrap(err)
	}
	if int64(len(data)) != size {
		return false, objectstore.Error.New("%q: read %d bytes, expected %d", key, len(data), size)
	}

	if store.BeforeCommit != nil {
		if err := store.BeforeCommit(key); err != nil {
			return false, err
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, exists := store.objects[key]; exists && !overwrite {
		return false, nil
	}
	store.calls.Uploaded++
	store.objects[key] = &Object{
		Data:         data,
		StorageClass: objectstore.ClassStandard,
	}
	return true, nil
}

// Get implements objectstore.Store.
func (store *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if store.FailGet != nil {
		if err := store.FailGet(key); err != nil {
			return nil, err
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls.Get++
	obj, ok := store.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound.New("%q", key)
	}
	if objectstore.IsCold(obj.StorageClass) && obj.Restore != objectstore.RestoreDone {
		return nil, objectstore.ErrFrozen.New("%q", key)
	}
	store.calls.Downloaded++
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.Data...))), nil
}

// Delete implements objectstore.Store.
func (store *Store) Delete(ctx context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls.Delete++
	if _, ok := store.objects[key]; !ok {
		return objectstore.ErrNotFound.New("%q", key)
	}
	delete(store.objects, key)
	return nil
}

// List implements objectstore.Store.
func (store *Store) List(ctx context.Context, opts objectstore.ListOptions, fn func(objectstore.ObjectInfo) error) error {
	store.mu.Lock()
	store.calls.List++
	var infos []objectstore.ObjectInfo
	for _, key := range store.keys(opts.Prefix) {
		if !opts.Match(key) {
			continue
		}
		obj := store.objects[key]
		infos = append(infos, objectstore.ObjectInfo{
			Key:           key,
			Size:          int64(len(obj.Data)),
			StorageClass:  obj.StorageClass,
			Restore:       obj.Restore,
			RestoreExpiry: obj.RestoreExpiry,
		})
	}
	store.mu.Unlock()

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// RequestRestore implements objectstore.Store.
func (store *Store) RequestRestore(ctx context.Context, key string, days int, tier objectstore.RetrievalTier) error {
	if store.FailRestore != nil {
		if err := store.FailRestore(key); err != nil {
			return err
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls.RequestRestore++
	obj, ok := store.objects[key]
	if !ok {
		return objectstore.ErrNotFound.New("%q", key)
	}
	if !objectstore.IsCold(obj.StorageClass) {
		return objectstore.Error.New("%q: not in a cold storage class", key)
	}
	if obj.Restore == objectstore.RestoreOngoing {
		return objectstore.Error.New("%q: restore already in progress", key)
	}
	obj.Restore = objectstore.RestoreOngoing
	obj.RestoreDays = days
	obj.RestoreTier = tier
	return nil
}

// EnsureTransition implements objectstore.LifecycleManager.
func (store *Store) EnsureTransition(ctx context.Context, ruleID, prefix string, days int) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.lifecycle[ruleID]; ok {
		return false, nil
	}
	store.lifecycle[ruleID] = prefix
	return true, nil
}
