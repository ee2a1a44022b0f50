package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_ExpiryAndRefresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	ctx := context.Background()

	if err := s.Set(ctx, "sid", 7, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if id, ok, _ := s.Get(ctx, "sid"); !ok || id != 7 {
		t.Fatalf("get = (%d, %v), want (7, true)", id, ok)
	}

	// Refresh just before expiry slides the window.
	now = now.Add(59 * time.Second)
	if err := s.Refresh(ctx, "sid", time.Minute); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "sid"); !ok {
		t.Fatal("session expired despite refresh")
	}

	// Past the refreshed deadline it is gone.
	now = now.Add(2 * time.Second)
	if _, ok, _ := s.Get(ctx, "sid"); ok {
		t.Fatal("session should have expired")
	}

	// Expired entries are removed, so refresh is a no-op afterwards.
	if err := s.Refresh(ctx, "sid", time.Minute); err != nil {
		t.Fatalf("refresh after expiry failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "sid"); ok {
		t.Fatal("refresh must not resurrect an expired session")
	}
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "sid", 1, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := s.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Delete(ctx, "sid"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "sid"); ok {
		t.Fatal("deleted session still resolvable")
	}
}
