package rrq

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// pendingFallback bounds how long awaitPendingResponses ever blocks
// between re-checks of the counter, preserved as a safety net per the
// redesign note even though the common path wakes on zeroCh instead.
const pendingFallback = 250 * time.Millisecond

// pendingGroup tracks in-flight OfferAndWait calls and lets
// AwaitPendingResponses block until the count drops to zero. zeroCh is
// closed whenever n transitions to zero and replaced on the next
// increment, the same channel-swap broadcast idiom the base queue's
// cache uses.
type pendingGroup struct {
	mu     sync.Mutex
	n      int
	zeroCh chan struct{}
	gauge  metric.Int64UpDownCounter
}

func newPendingGroup(meter metric.MeterProvider) (*pendingGroup, error) {
	g := &pendingGroup{zeroCh: closedChan()}
	if meter != nil {
		m, err := meter.Meter("zkq.rrq", metric.WithInstrumentationVersion("v1")).Int64UpDownCounter(
			"zkq_rrq_pending_responses",
		)
		if err != nil {
			return nil, err
		}
		g.gauge = m
	}
	return g, nil
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (g *pendingGroup) inc(ctx context.Context) {
	g.mu.Lock()
	if g.n == 0 {
		g.zeroCh = make(chan struct{})
	}
	g.n++
	g.mu.Unlock()
	if g.gauge != nil {
		g.gauge.Add(ctx, 1)
	}
}

func (g *pendingGroup) dec(ctx context.Context) {
	g.mu.Lock()
	g.n--
	if g.n <= 0 {
		g.n = 0
		close(g.zeroCh)
	}
	g.mu.Unlock()
	if g.gauge != nil {
		g.gauge.Add(ctx, -1)
	}
}

// awaitZero blocks until the pending count reaches zero or ctx is
// cancelled, re-checking at least every pendingFallback in case a close
// signal was dropped.
func (g *pendingGroup) awaitZero(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.n == 0 {
			g.mu.Unlock()
			return nil
		}
		ch := g.zeroCh
		g.mu.Unlock()

		timer := time.NewTimer(pendingFallback)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
