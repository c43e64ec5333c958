// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV keeps entries in memory; unimplemented methods panic through the nil embedded interface
type fakeKV struct {
	jetstream.KeyValue

	mu     sync.Mutex
	data   map[string][]byte
	purged []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	key   string
	value []byte
}

func (e fakeEntry) Key() string   { return e.key }
func (e fakeEntry) Value() []byte { return e.value }

type fakeLister struct {
	keys chan string
}

func (l fakeLister) Keys() <-chan string { return l.keys }
func (l fakeLister) Stop() error         { return nil }

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: value}, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Purge(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	f.purged = append(f.purged, key)
	return nil
}

func (f *fakeKV) ListKeysFiltered(_ context.Context, filters ...string) (jetstream.KeyLister, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []string
	for key := range f.data {
		for _, filter := range filters {
			if strings.HasPrefix(key, strings.TrimSuffix(filter, ">")) {
				matched = append(matched, key)
			}
		}
	}
	if len(matched) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	keys := make(chan string, len(matched))
	for _, key := range matched {
		keys <- key
	}
	close(keys)
	return fakeLister{keys: keys}, nil
}

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := newCache(kv, "stacks")

	require.NoError(t, c.Set(ctx, "abc", []byte(`{"id":"abc"}`), time.Minute))
	assert.Contains(t, kv.data, "stacks.abc")

	value, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"abc"}`, string(value))

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsPurged(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := newCache(kv, "stacks")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "abc", []byte("v"), time.Second))

	now = now.Add(2 * time.Second)
	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"stacks.abc"}, kv.purged)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := newCache(newFakeKV(), "stacks")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "abc", []byte("v"), 0))

	now = now.Add(365 * 24 * time.Hour)
	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := newCache(kv, "stacks")

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Invalidate(ctx, "a", "never-cached"))
	assert.NotContains(t, kv.data, "stacks.a")
	assert.Contains(t, kv.data, "stacks.b")
}

func TestCache_InvalidateAllIsScopedToNamespace(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	stacks := newCache(kv, "stacks")
	projects := newCache(kv, "projects")

	require.NoError(t, stacks.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, stacks.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, projects.Set(ctx, "p", []byte("3"), 0))

	require.NoError(t, stacks.InvalidateAll(ctx))
	assert.Len(t, kv.data, 1)
	assert.Contains(t, kv.data, "projects.p")

	// nothing left to purge
	require.NoError(t, stacks.InvalidateAll(ctx))
}

func TestCache_RejectsEmptyKey(t *testing.T) {
	c := newCache(newFakeKV(), "stacks")
	assert.Error(t, c.Set(context.Background(), "", []byte("v"), 0))
}
