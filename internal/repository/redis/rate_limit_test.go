package redis

import (
	"context"
	"testing"
	"time"
)

func newTestRateLimiter(t *testing.T, window time.Duration) (*RateLimitRepository, *fakeTicker) {
	t.Helper()

	_, client := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{
		KeyPrefix: "test:rate-limit",
		Window:    window,
	})

	ticker := &fakeTicker{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo.now = ticker.Next
	return repo, ticker
}

// fakeTicker hands out strictly increasing timestamps so every attempt is a
// distinct sorted-set member.
type fakeTicker struct {
	now time.Time
}

func (f *fakeTicker) Next() time.Time {
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func (f *fakeTicker) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestRateLimitCountsWithinWindow(t *testing.T) {
	repo, _ := newTestRateLimiter(t, time.Minute)

	for want := int64(1); want <= 5; want++ {
		count, err := repo.Increment(context.Background(), "alice")
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	repo, _ := newTestRateLimiter(t, time.Minute)

	if _, err := repo.Increment(context.Background(), "alice"); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	count, err := repo.Increment(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	repo, ticker := newTestRateLimiter(t, time.Minute)

	for i := 0; i < 4; i++ {
		if _, err := repo.Increment(context.Background(), "alice"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	// Past the window the old attempts are trimmed.
	ticker.Advance(2 * time.Minute)
	count, err := repo.Increment(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 after window slide", count)
	}
}

func TestRateLimitRejectsEmptyKey(t *testing.T) {
	repo, _ := newTestRateLimiter(t, time.Minute)

	if _, err := repo.Increment(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty key")
	}
}
