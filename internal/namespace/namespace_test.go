package namespace

import (
	"context"
	"testing"

	"github.com/rzbill/zkq/internal/coord/coordtest"
)

func TestEnsureQueueDirIdempotent(t *testing.T) {
	conn := coordtest.New()
	ctx := context.Background()

	m1, err := EnsureQueueDir(ctx, conn, "/queues/default", 1000, 1000)
	if err != nil {
		t.Fatalf("ensure1: %v", err)
	}
	m2, err := EnsureQueueDir(ctx, conn, "/queues/default", 1000, 2000)
	if err != nil {
		t.Fatalf("ensure2: %v", err)
	}
	if m1.CreatedAtMs != m2.CreatedAtMs {
		t.Fatalf("not idempotent: %+v vs %+v", m1, m2)
	}
}

func TestEnsureQueueDirCreatesDirectory(t *testing.T) {
	conn := coordtest.New()
	ctx := context.Background()

	if _, err := EnsureQueueDir(ctx, conn, "/queues/jobs", 0, 1000); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	ok, _, err := conn.Exists(ctx, "/queues/jobs")
	if err != nil || !ok {
		t.Fatalf("expected directory to exist: ok=%v err=%v", ok, err)
	}
	names, _, err := conn.Children(ctx, "/queues/jobs")
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(names) != 1 || names[0] != ".zkq-meta" {
		t.Fatalf("expected only meta child, got %v", names)
	}
}
