// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package teststore implements an in-memory key/value store.
package teststore

import (
	"context"
	"sort"
	"sync"

	"storj.io/minus80/private/kvstore"
)

// Client implements in-memory key value store.
type Client struct {
	mu        sync.Mutex
	items     map[string]kvstore.Value
	CallCount struct {
		Get    int
		Put    int
		Delete int
		Range  int
		Close  int
	}
}

// New creates a new in-memory key-value store.
func New() *Client { return &Client{items: map[string]kvstore.Value{}} }

// Put adds a value to store.
func (store *Client) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Put++
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}
	store.items[string(key)] = kvstore.CloneValue(value)
	return nil
}

// Get gets a value to store.
func (store *Client) Get(ctx context.Context, key kvstore.Key) (kvstore.Value, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Get++
	if key.IsZero() {
		return nil, kvstore.ErrEmptyKey.New("")
	}
	value, ok := store.items[string(key)]
	if !ok {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	return kvstore.CloneValue(value), nil
}

// Delete deletes key and the value.
func (store *Client) Delete(ctx context.Context, key kvstore.Key) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Delete++
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}
	if _, ok := store.items[string(key)]; !ok {
		return kvstore.ErrKeyNotFound.New("%q", key)
	}
	delete(store.items, string(key))
	return nil
}

// Range iterates over all items in key order.
func (store *Client) Range(ctx context.Context, fn func(context.Context, kvstore.Key, kvstore.Value) error) error {
	store.mu.Lock()
	store.CallCount.Range++
	keys := make([]string, 0, len(store.items))
	for key := range store.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([]kvstore.Value, len(keys))
	for i, key := range keys {
		values[i] = kvstore.CloneValue(store.items[key])
	}
	store.mu.Unlock()

	for i, key := range keys {
		if err := fn(ctx, kvstore.Key(key), values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the store.
func (store *Client) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Close++
	return nil
}
