package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/rzbill/zkq/internal/config"
	"github.com/rzbill/zkq/internal/coord/coordtest"
)

func testOptions() Options {
	cfg := cfgpkg.Default()
	cfg.QueueRoot = "/queues"
	return Options{Config: cfg, Conn: coordtest.New(), NowMs: func() int64 { return 1000 }}
}

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenBaseQueue(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, testOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	q, err := rt.OpenBaseQueue(ctx, "jobs", 0)
	if err != nil {
		t.Fatalf("open base queue: %v", err)
	}
	defer q.Close()

	if q.Dir() != "/queues/jobs" {
		t.Fatalf("unexpected dir: %s", q.Dir())
	}
	if err := q.Offer(ctx, []byte("hello")); err != nil {
		t.Fatalf("offer: %v", err)
	}
}

func TestOpenRequestResponseQueue(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, testOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	q, err := rt.OpenRequestResponseQueue(ctx, "rpc", 0)
	if err != nil {
		t.Fatalf("open rrq: %v", err)
	}
	defer q.Close()

	if q.Dir() != "/queues/rpc" {
		t.Fatalf("unexpected dir: %s", q.Dir())
	}
}
