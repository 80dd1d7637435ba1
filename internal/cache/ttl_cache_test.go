package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_InvalidateRemovesImmediately(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_SubscribeFiresOnInvalidate(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	ch := c.Subscribe("k")
	c.Invalidate("k")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified of invalidation")
	}
}

func TestTTLCache_GCRemovesExpiredOnly(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Set("expired", "v")
	time.Sleep(5 * time.Millisecond)
	c.Set("fresh", "v2")
	c.GC()

	_, ok := c.Get("expired")
	assert.False(t, ok)
	got, ok := c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}
