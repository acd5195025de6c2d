package rrq

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rzbill/zkq/internal/coord"
	"github.com/rzbill/zkq/internal/coord/coordtest"
)

func mustOpen(t *testing.T, dir string) (*RRQ, *coordtest.Conn) {
	t.Helper()
	conn := coordtest.New()
	if _, err := conn.Create(context.Background(), dir, nil, coord.Persistent); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	q, err := Open(context.Background(), conn, dir, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(q.Close)
	return q, conn
}

// S4: offerAndWait("ping", inf) paired with a consumer doing
// peekElements -> removeWithResponse returns "pong" to the submitter.
func TestS4_RequestResponseRoundTrip(t *testing.T) {
	q, _ := mustOpen(t, "/rpc")
	ctx := context.Background()

	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := q.OfferAndWait(ctx, []byte("ping"), math.MaxInt64)
		resultCh <- res
		errCh <- err
	}()

	var elems []struct {
		name    string
		payload []byte
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(elems) == 0 && time.Now().Before(deadline) {
		got, err := q.PeekElements(ctx, 1, 100, nil)
		if err != nil {
			t.Fatalf("peekElements: %v", err)
		}
		for _, e := range got {
			elems = append(elems, struct {
				name    string
				payload []byte
			}{e.Name, e.Payload})
		}
	}
	if len(elems) == 0 {
		t.Fatalf("consumer never observed the request")
	}
	if string(elems[0].payload) != "ping" {
		t.Fatalf("unexpected payload: %q", elems[0].payload)
	}

	reqPath := q.Dir() + "/" + elems[0].name
	if err := q.RemoveWithResponse(ctx, reqPath, []byte("pong")); err != nil {
		t.Fatalf("removeWithResponse: %v", err)
	}

	select {
	case res := <-resultCh:
		if err := <-errCh; err != nil {
			t.Fatalf("offerAndWait: %v", err)
		}
		if string(res.Bytes) != "pong" {
			t.Fatalf("expected pong, got %q", res.Bytes)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("offerAndWait never returned")
	}
}

// S5: offerAndWait with no consumer returns by ~timeout with empty
// bytes; the request node remains visible and a later removeWithResponse
// succeeds silently.
func TestS5_ResponseTimeout(t *testing.T) {
	q, _ := mustOpen(t, "/rpc")
	ctx := context.Background()

	start := time.Now()
	res, err := q.OfferAndWait(ctx, []byte("x"), 200)
	if err != nil {
		t.Fatalf("offerAndWait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Fatalf("offerAndWait took too long: %v", elapsed)
	}
	if len(res.Bytes) != 0 {
		t.Fatalf("expected empty bytes on timeout, got %q", res.Bytes)
	}
	if !res.TimedOut {
		t.Fatalf("expected TimedOut=true")
	}

	elems, err := q.PeekElements(ctx, 10, 0, nil)
	if err != nil {
		t.Fatalf("peekElements: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("expected request node still visible, got %d elements", len(elems))
	}

	reqPath := q.Dir() + "/" + elems[0].Name
	if err := q.RemoveWithResponse(ctx, reqPath, []byte("late")); err != nil {
		t.Fatalf("removeWithResponse after timeout: %v", err)
	}
}

func TestContainsRequestWithId(t *testing.T) {
	q, _ := mustOpen(t, "/rpc")
	ctx := context.Background()
	_ = q.Offer(ctx, []byte(`{"rid":"41"}`))
	_ = q.Offer(ctx, []byte(`{"rid":"42"}`))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(q.CacheSnapshot()) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	found, err := q.ContainsRequestWithId(ctx, "rid", "42")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !found {
		t.Fatalf("expected to find rid=42")
	}

	found, err = q.ContainsRequestWithId(ctx, "rid", "99")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if found {
		t.Fatalf("did not expect to find rid=99")
	}
}

func TestTailId(t *testing.T) {
	q, _ := mustOpen(t, "/rpc")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = q.Offer(ctx, []byte("p"))
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(q.CacheSnapshot()) >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	path, ok, err := q.TailId(ctx)
	if err != nil || !ok {
		t.Fatalf("tailId: ok=%v err=%v", ok, err)
	}
	names := q.CacheSnapshot()
	want := q.Dir() + "/" + names[len(names)-1]
	if path != want {
		t.Fatalf("tailId: got %q want %q", path, want)
	}
}

func TestAwaitPendingResponses(t *testing.T) {
	q, _ := mustOpen(t, "/rpc")
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		_, _ = q.OfferAndWait(ctx, []byte("x"), 100)
		close(done)
	}()

	awaitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.AwaitPendingResponses(awaitCtx); err != nil {
		t.Fatalf("awaitPendingResponses: %v", err)
	}
	<-done
}
