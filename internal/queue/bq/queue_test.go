package bq

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/zkq/internal/coord"
	"github.com/rzbill/zkq/internal/coord/coordtest"
)

func mustOpen(t *testing.T, dir string, opts Options) (*Queue, *coordtest.Conn) {
	t.Helper()
	conn := coordtest.New()
	if _, err := conn.Create(context.Background(), dir, nil, coord.Persistent); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	q, err := Open(context.Background(), conn, dir, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(q.Close)
	return q, conn
}

// S1: offer a, b, c; poll x3 yields a, b, c; fourth poll yields empty.
func TestS1_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{})

	for _, p := range []string{"a", "b", "c"} {
		if err := q.Offer(ctx, []byte(p)); err != nil {
			t.Fatalf("offer %s: %v", p, err)
		}
	}
	// Give the watch loop a moment to refresh K after each offer.
	waitForLen(t, q, 3)

	for _, want := range []string{"a", "b", "c"} {
		got, ok, err := q.Poll(ctx)
		if err != nil || !ok {
			t.Fatalf("poll: ok=%v err=%v", ok, err)
		}
		if string(got) != want {
			t.Fatalf("poll: got %q want %q", got, want)
		}
	}
	if _, ok, err := q.Poll(ctx); err != nil || ok {
		t.Fatalf("expected empty poll, got ok=%v err=%v", ok, err)
	}
}

// S2-lite: two producers each offer a disjoint batch; one consumer drains
// with Take and the union matches, preserving each producer's order.
func TestS2_InterleavedProducers(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{})

	const n = 50
	var wg sync.WaitGroup
	for _, producer := range []string{"A", "B"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				_ = q.Offer(ctx, []byte(fmt.Sprintf("%s-%03d", p, i)))
			}
		}(producer)
	}
	wg.Wait()
	waitForLen(t, q, 2*n)

	seenA, seenB := -1, -1
	for i := 0; i < 2*n; i++ {
		got, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("take: %v", err)
		}
		var idx int
		switch got[0] {
		case 'A':
			fmt.Sscanf(string(got), "A-%d", &idx)
			if idx <= seenA {
				t.Fatalf("producer A out of order: got %d after %d", idx, seenA)
			}
			seenA = idx
		case 'B':
			fmt.Sscanf(string(got), "B-%d", &idx)
			if idx <= seenB {
				t.Fatalf("producer B out of order: got %d after %d", idx, seenB)
			}
			seenB = idx
		}
	}
	if seenA != n-1 || seenB != n-1 {
		t.Fatalf("expected to drain both producers fully, got seenA=%d seenB=%d", seenA, seenB)
	}
}

// Cache-advisory safety: two consumers racing on Poll never both return
// the same payload.
func TestCacheAdvisorySafety(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{})
	for i := 0; i < 20; i++ {
		_ = q.Offer(ctx, []byte(fmt.Sprintf("p-%02d", i)))
	}
	waitForLen(t, q, 20)

	results := make(chan string, 20)
	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, ok, err := q.Poll(ctx)
				if err != nil {
					return
				}
				if !ok {
					return
				}
				results <- string(got)
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]int{}
	for r := range results {
		seen[r]++
	}
	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct payloads, got %d", len(seen))
	}
	for p, n := range seen {
		if n != 1 {
			t.Fatalf("payload %q returned %d times", p, n)
		}
	}
}

// S3: maxQueueSize=10, 20 sequential offers -> exactly 10 succeed.
func TestS3_BoundedCapacity(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{MaxQueueSize: 10})

	successes := 0
	for i := 0; i < 20; i++ {
		if err := q.Offer(ctx, []byte(fmt.Sprintf("p-%02d", i))); err == nil {
			successes++
		}
	}
	if successes != 10 {
		t.Fatalf("expected exactly 10 successes, got %d", successes)
	}
}

// Idempotent bulk-remove: calling RemoveMany twice with the same list is
// a no-op the second time.
func TestRemoveManyIdempotent(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{})
	for i := 0; i < 5; i++ {
		_ = q.Offer(ctx, []byte(fmt.Sprintf("p-%d", i)))
	}
	waitForLen(t, q, 5)
	names := q.CacheSnapshot()

	if err := q.RemoveMany(ctx, names); err != nil {
		t.Fatalf("removeMany 1: %v", err)
	}
	if err := q.RemoveMany(ctx, names); err != nil {
		t.Fatalf("removeMany 2 (idempotent): %v", err)
	}
	if _, ok, _ := q.Poll(ctx); ok {
		t.Fatalf("expected empty queue after bulk remove")
	}
}

// Watch-loss survival: forcibly expiring the session does not deadlock
// Take; the bounded wait still lets a subsequent offer be observed.
func TestWatchLossSurvival(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	q, conn := mustOpen(t, "/q", Options{})

	conn.ExpireSession()

	done := make(chan struct{})
	go func() {
		_, _ = q.Take(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	_ = q.Offer(context.Background(), []byte("late"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("take did not return after watch loss + offer")
	}
}

func TestPeekElementsWithAccept(t *testing.T) {
	ctx := context.Background()
	q, _ := mustOpen(t, "/q", Options{})
	_ = q.Offer(ctx, []byte(`{"kind":"a"}`))
	_ = q.Offer(ctx, []byte(`{"kind":"b"}`))
	waitForLen(t, q, 2)

	accept, err := CompileAccept(`json.kind == "b"`)
	if err != nil {
		t.Fatalf("compile accept: %v", err)
	}
	elems, err := q.PeekElements(ctx, 10, 0, accept)
	if err != nil {
		t.Fatalf("peekElements: %v", err)
	}
	if len(elems) != 1 || string(elems[0].Payload) != `{"kind":"b"}` {
		t.Fatalf("unexpected elements: %+v", elems)
	}
}

func waitForLen(t *testing.T, q *Queue, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(q.CacheSnapshot()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cache never reached length %d (at %d)", n, len(q.CacheSnapshot()))
}
