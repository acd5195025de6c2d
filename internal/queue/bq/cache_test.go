package bq

import (
	"context"
	"testing"
	"time"
)

func TestCacheReplaceFiltersAndSorts(t *testing.T) {
	c := newCache()
	c.replace([]string{"qn-0000000002", ".zkq-meta", "qn-0000000001", "qnr-0000000001"})
	got := c.snapshot()
	want := []string{"qn-0000000001", "qn-0000000002"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestCacheVersionBumpsOnReplace(t *testing.T) {
	c := newCache()
	v0 := c.snapshotVersion()
	c.replace([]string{"qn-0000000001"})
	if c.snapshotVersion() == v0 {
		t.Fatalf("version did not change after replace")
	}
}

func TestCacheWaitWakesOnReplace(t *testing.T) {
	c := newCache()
	since := c.snapshotVersion()
	done := make(chan bool, 1)
	go func() {
		changed, err := c.wait(context.Background(), since, time.Time{})
		if err != nil {
			t.Errorf("wait err: %v", err)
		}
		done <- changed
	}()
	time.Sleep(20 * time.Millisecond)
	c.replace([]string{"qn-0000000001"})
	select {
	case changed := <-done:
		if !changed {
			t.Fatalf("expected changed=true")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not wake on replace")
	}
}

func TestCacheWaitRespectsDeadline(t *testing.T) {
	c := newCache()
	since := c.snapshotVersion()
	start := time.Now()
	changed, err := c.wait(context.Background(), since, time.Now().Add(50*time.Millisecond))
	if err != nil {
		t.Fatalf("wait err: %v", err)
	}
	if changed {
		t.Fatalf("expected changed=false on deadline")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait took too long: %v", time.Since(start))
	}
}

func TestCacheWaitRespectsCancellation(t *testing.T) {
	c := newCache()
	since := c.snapshotVersion()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.wait(ctx, since, time.Time{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestCacheRemoveLocal(t *testing.T) {
	c := newCache()
	c.replace([]string{"qn-0000000001", "qn-0000000002"})
	c.removeLocal("qn-0000000001")
	got := c.snapshot()
	if len(got) != 1 || got[0] != "qn-0000000002" {
		t.Fatalf("unexpected snapshot after removeLocal: %v", got)
	}
}
