package bq

import (
	"context"
	"sort"
	"sync"
	"time"
)

// requestPrefix is the only child-name prefix the base queue recognizes.
const requestPrefix = "qn-"

// maxWait bounds a single slice of a blocking wait on the cache-change
// signal, so a dropped watch notification can never wedge a caller
// forever; the check that follows each slice re-evaluates from scratch.
const maxWait = 500 * time.Millisecond

// cache holds the advisory set of known request-node short names plus the
// version counter waiters use to detect "something changed" without
// comparing object identity. All fields are guarded by mu.
type cache struct {
	mu      sync.Mutex
	known   []string // sorted ascending; lexical order == numeric order
	version uint64
	notify  chan struct{} // closed and replaced on every version bump
}

func newCache() *cache {
	return &cache{notify: make(chan struct{})}
}

// replace overwrites the known set and bumps the version, waking every
// waiter blocked in wait(). It does not merge with the previous contents:
// a stale name dropped by this fetch is gone even if nothing explicitly
// deleted it locally.
func (c *cache) replace(names []string) {
	filtered := make([]string, 0, len(names))
	for _, n := range names {
		if len(n) > len(requestPrefix) && n[:len(requestPrefix)] == requestPrefix {
			filtered = append(filtered, n)
		}
	}
	sort.Strings(filtered)

	c.mu.Lock()
	c.known = filtered
	c.version++
	old := c.notify
	c.notify = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// snapshotVersion returns the current version under lock, for callers that
// need to capture it before releasing the lock to do a non-blocking check.
func (c *cache) snapshotVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// head returns the smallest known name, or "" if the cache is empty.
func (c *cache) head() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.known) == 0 {
		return ""
	}
	return c.known[0]
}

// snapshot returns a copy of all known names in ascending order.
func (c *cache) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.known))
	copy(out, c.known)
	return out
}

// removeLocal drops name from the local cache without touching the
// remote node; used after a consumer has locally taken a name so the
// same goroutine doesn't immediately re-select it while waiting for a
// fresh fetch to confirm the deletion remotely.
func (c *cache) removeLocal(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.known {
		if n == name {
			c.known = append(c.known[:i], c.known[i+1:]...)
			return
		}
	}
}

// wait blocks until the cache version differs from since, ctx is
// cancelled, or deadline (zero means no deadline) passes. It returns
// (changed, err) where err is non-nil only on context cancellation.
func (c *cache) wait(ctx context.Context, since uint64, deadline time.Time) (bool, error) {
	for {
		c.mu.Lock()
		if c.version != since {
			c.mu.Unlock()
			return true, nil
		}
		ch := c.notify
		c.mu.Unlock()

		slice := maxWait
		if !deadline.IsZero() {
			if remaining := time.Until(deadline); remaining <= 0 {
				return false, nil
			} else if remaining < slice {
				slice = remaining
			}
		}
		timer := time.NewTimer(slice)
		select {
		case <-ch:
			timer.Stop()
			return true, nil
		case <-timer.C:
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return false, nil
			}
			// Bounded wakeup; loop and re-check the version in case the
			// notify channel close raced with the timer firing.
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		}
	}
}
