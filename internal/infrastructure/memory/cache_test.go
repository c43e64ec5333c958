// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/mock"
)

func cached(t *testing.T, c *Cache, key string) bool {
	t.Helper()
	_, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func TestCache_TTLIsCapped(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(10, time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte(`{}`), 10*time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte(`{}`), time.Hour))
	require.NoError(t, c.Set(ctx, "forever", []byte(`{}`), 0))

	now = now.Add(30 * time.Second)
	assert.False(t, cached(t, c, "short"))
	assert.True(t, cached(t, c, "long"))
	assert.True(t, cached(t, c, "forever"))

	now = now.Add(time.Minute)
	assert.False(t, cached(t, c, "long"))
	assert.False(t, cached(t, c, "forever"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_IsBounded(t *testing.T) {
	ctx := context.Background()
	c := NewCache(2, 0)

	require.NoError(t, c.Set(ctx, "a", []byte(`{}`), 0))
	require.NoError(t, c.Set(ctx, "b", []byte(`{}`), 0))
	assert.True(t, cached(t, c, "a"))
	require.NoError(t, c.Set(ctx, "c", []byte(`{}`), 0))

	assert.Equal(t, 2, c.Len())
	assert.True(t, cached(t, c, "a"))
	assert.False(t, cached(t, c, "b"))
	assert.True(t, cached(t, c, "c"))
}

func TestCache_InvalidateScope(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T) *Cache {
		t.Helper()
		c := NewCache(10, 0)
		require.NoError(t, c.Set(ctx, "a1", []byte(`{"organization_id":"orgA","project_id":"p1"}`), 0))
		require.NoError(t, c.Set(ctx, "a2", []byte(`{"organization_id":"orgA","project_id":"p2"}`), 0))
		require.NoError(t, c.Set(ctx, "b1", []byte(`{"organization_id":"orgB","project_id":"p3"}`), 0))
		require.NoError(t, c.Set(ctx, "org", []byte(`{"id":"orgA"}`), 0))
		return c
	}

	tests := []struct {
		name         string
		organization string
		project      string
		remaining    []string
	}{
		{name: "organization", organization: "orgA", remaining: []string{"b1", "org"}},
		{name: "project", organization: "orgA", project: "p1", remaining: []string{"a2", "b1", "org"}},
		{name: "unknown organization", organization: "orgC", remaining: []string{"a1", "a2", "b1", "org"}},
		{name: "no scope clears everything", remaining: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := seed(t)
			require.NoError(t, c.InvalidateScope(ctx, tt.organization, tt.project))

			var remaining []string
			for _, key := range []string{"a1", "a2", "b1", "org"} {
				if cached(t, c, key) {
					remaining = append(remaining, key)
				}
			}
			assert.Equal(t, tt.remaining, remaining)
		})
	}
}

func TestCache_RejectsEmptyKey(t *testing.T) {
	c := NewCache(1, 0)
	assert.Error(t, c.Set(context.Background(), "", []byte(`{}`), 0))
}

func TestTieredCache(t *testing.T) {
	ctx := context.Background()

	t.Run("writes reach both tiers", func(t *testing.T) {
		shared := mock.NewMockCache()
		tiered := NewTieredCache(NewCache(10, time.Minute), shared)

		require.NoError(t, tiered.Set(ctx, "s1", []byte(`{"id":"s1"}`), time.Hour))
		assert.Equal(t, []string{"s1"}, shared.Keys())
		assert.True(t, cached(t, tiered.Local(), "s1"))

		require.NoError(t, tiered.Invalidate(ctx, "s1"))
		assert.Empty(t, shared.Keys())
		assert.False(t, cached(t, tiered.Local(), "s1"))
	})

	t.Run("shared hits are kept locally", func(t *testing.T) {
		shared := mock.NewMockCache()
		require.NoError(t, shared.Set(ctx, "s1", []byte(`{"id":"s1"}`), 0))
		tiered := NewTieredCache(NewCache(10, time.Minute), shared)

		value, ok, err := tiered.Get(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"id":"s1"}`, string(value))
		assert.True(t, cached(t, tiered.Local(), "s1"))
	})

	t.Run("local invalidation leaves the shared tier alone", func(t *testing.T) {
		shared := mock.NewMockCache()
		tiered := NewTieredCache(NewCache(10, time.Minute), shared)
		require.NoError(t, tiered.Set(ctx, "s1", []byte(`{"organization_id":"orgA"}`), 0))

		require.NoError(t, tiered.Local().InvalidateScope(ctx, "orgA", ""))
		assert.Equal(t, []string{"s1"}, shared.Keys())

		_, ok, err := tiered.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("shared failures are returned", func(t *testing.T) {
		shared := mock.NewMockCache()
		shared.SetError(assert.AnError)
		tiered := NewTieredCache(NewCache(10, time.Minute), shared)

		assert.ErrorIs(t, tiered.Set(ctx, "s1", []byte(`{}`), 0), assert.AnError)
		assert.False(t, cached(t, tiered.Local(), "s1"))
		assert.ErrorIs(t, tiered.Invalidate(ctx, "s1"), assert.AnError)
	})
}

func TestCacheProvider_SharesLocalTierPerNamespace(t *testing.T) {
	ctx := context.Background()
	provider := NewCacheProvider(mock.NewMockCacheProvider(), DefaultConfig())

	require.NoError(t, provider.Namespace("stack").Set(ctx, "s1", []byte(`{}`), 0))
	assert.True(t, cached(t, provider.Local("stack"), "s1"))
	assert.False(t, cached(t, provider.Local("project"), "s1"))
}
