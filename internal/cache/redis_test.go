// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestRedisCache(t)

	c.Set("doc", map[string]any{"category": "lease", "confidence": 0.92}, time.Minute)

	got, ok := c.Get("doc")
	require.True(t, ok)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lease", m["category"])
	assert.InDelta(t, 0.92, m["confidence"], 0.001)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newTestRedisCache(t)

	_, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newTestRedisCache(t)

	c.Set("short", "v", 5*time.Second)
	mr.FastForward(10 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestRedisCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestRedisCache(t)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestRedisCache_HealthCheck(t *testing.T) {
	c, mr := newTestRedisCache(t)

	assert.NoError(t, c.HealthCheck(t.Context()))

	mr.Close()
	assert.Error(t, c.HealthCheck(t.Context()))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
