package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set(ctx, "k", []byte("payload"))
	val, ok := c.Get(ctx, "k")
	if !ok || string(val) != "payload" {
		t.Fatalf("unexpected value: %q %v", val, ok)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	current = current.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryInvalidateAllIsWholesale(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected a to be gone")
	}
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be gone")
	}
}

func TestNoopNeverHits(t *testing.T) {
	var c Noop
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("noop cache must never hit")
	}
	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
