// Package denylist keeps a local, in-memory view of revoked token ids so the
// perimeter filter can reject them without calling the identity provider.
// Entries expire with their tokens; the view is eventually consistent with
// the revocation topic feeding it.
package denylist

import (
	"context"
	"sync"
	"time"

	"github.com/qnit18/genzf/internal/core/port"
)

// Denylist is a concurrency-safe set of revoked jti values.
type Denylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// New returns an empty denylist.
func New() *Denylist {
	return &Denylist{
		entries: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock for deterministic testing.
func (d *Denylist) WithClock(clock func() time.Time) *Denylist {
	if clock != nil {
		d.now = clock
	}
	return d
}

// Add records a revoked jti until its token expires. A zero expiry keeps the
// entry until the process restarts.
func (d *Denylist) Add(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	d.mu.Lock()
	d.entries[jti] = expiresAt
	d.mu.Unlock()
}

// Contains reports whether the jti is revoked. Entries whose tokens have
// already expired no longer matter; expiry checks on the token itself reject
// them first.
func (d *Denylist) Contains(jti string) bool {
	d.mu.RLock()
	expiresAt, ok := d.entries[jti]
	d.mu.RUnlock()
	if !ok {
		return false
	}
	if !expiresAt.IsZero() && !expiresAt.After(d.now()) {
		return false
	}
	return true
}

// Len reports the current number of entries, expired ones included.
func (d *Denylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *Denylist) prune() {
	now := d.now()
	d.mu.Lock()
	for jti, expiresAt := range d.entries {
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			delete(d.entries, jti)
		}
	}
	d.mu.Unlock()
}

// Prune removes expired entries on the given interval until the context is
// canceled.
func (d *Denylist) Prune(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.prune()
		}
	}
}

var _ port.Denylist = (*Denylist)(nil)
