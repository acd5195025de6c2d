package rrq

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/zkq/internal/coord"
)

// Latch is a single-shot event latch: the first matching event stores
// itself and signals every waiter; later calls to Await return it
// immediately. Bare session-state events never count as a match. An
// optional filter further restricts which event types latch.
type Latch struct {
	mu     sync.Mutex
	fired  bool
	event  coord.Event
	ch     chan struct{}
	filter func(coord.Event) bool
}

// NewLatch constructs an unfired latch. filter may be nil to accept any
// non-session event.
func NewLatch(filter func(coord.Event) bool) *Latch {
	return &Latch{ch: make(chan struct{}), filter: filter}
}

// Feed offers ev to the latch. The first accepted event wins; subsequent
// calls (including duplicate fires from a misbehaving source) are no-ops.
func (l *Latch) Feed(ev coord.Event) {
	if ev.IsSessionEvent() {
		return
	}
	if l.filter != nil && !l.filter(ev) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired {
		return
	}
	l.fired = true
	l.event = ev
	close(l.ch)
}

// Await blocks until the latch fires, ctx is cancelled, or deadline (zero
// means no deadline) passes. ok is false only on a timeout; a cancelled
// ctx returns a non-nil error instead.
func (l *Latch) Await(ctx context.Context, deadline time.Time) (ev coord.Event, ok bool, err error) {
	l.mu.Lock()
	if l.fired {
		ev = l.event
		l.mu.Unlock()
		return ev, true, nil
	}
	l.mu.Unlock()

	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case <-l.ch:
		l.mu.Lock()
		ev = l.event
		l.mu.Unlock()
		return ev, true, nil
	case <-timeoutCh:
		return coord.Event{}, false, nil
	case <-ctx.Done():
		return coord.Event{}, false, ctx.Err()
	}
}

// Pump relays the one-shot watch channel ch into the latch, so callers
// that only hold a <-chan coord.Event can still participate in Await.
// It returns immediately if ch is nil.
func (l *Latch) Pump(ch <-chan coord.Event) {
	if ch == nil {
		return
	}
	go func() {
		if ev, ok := <-ch; ok {
			l.Feed(ev)
		}
	}()
}
