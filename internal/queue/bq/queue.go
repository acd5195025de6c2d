package bq

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rzbill/zkq/internal/coord"
	"go.opentelemetry.io/otel/metric"
)

// Element is a (name, payload) pair returned by PeekElements.
type Element struct {
	Name    string
	Payload []byte
}

// Options configures a Queue.
type Options struct {
	// MaxQueueSize bounds the directory's child count. Zero disables the
	// bound.
	MaxQueueSize int
	// Meter supplies OpenTelemetry instruments; nil disables stats.
	Meter metric.MeterProvider
}

// Queue is the base distributed FIFO queue over a single directory.
type Queue struct {
	conn coord.Conn
	dir  string
	stat *stats

	cache *cache

	maxQueueSize int
	creditMu     sync.Mutex
	credit       int

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

// Open constructs a Queue over dir, performs the initial children fetch
// with a fresh watch installed, and starts the background watch loop.
// dir must already exist (see internal/namespace.EnsureQueueDir); Open
// does not create it.
func Open(ctx context.Context, conn coord.Conn, dir string, opts Options) (*Queue, error) {
	var st *stats
	if opts.Meter != nil {
		s, err := newStats(opts.Meter)
		if err != nil {
			return nil, err
		}
		st = s
	}

	q := &Queue{
		conn:         conn,
		dir:          dir,
		stat:         st,
		cache:        newCache(),
		maxQueueSize: opts.MaxQueueSize,
	}

	ch, err := q.installWatch(ctx)
	if err != nil {
		return nil, infraErr("open", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	q.cancelWatch = cancel
	q.watchDone = make(chan struct{})
	go q.watchLoop(watchCtx, ch)

	return q, nil
}

// Close stops the background watch loop. It does not delete any nodes.
func (q *Queue) Close() {
	q.cancelWatch()
	<-q.watchDone
}

// Dir returns the queue directory path.
func (q *Queue) Dir() string { return q.dir }

// installWatch fetches children, installs a fresh watch, and replaces the
// cache with the result. It is the only place that mutates q.cache's
// content outside of local pop bookkeeping.
func (q *Queue) installWatch(ctx context.Context) (<-chan coord.Event, error) {
	names, _, ch, err := q.conn.ChildrenW(ctx, q.dir)
	if err != nil {
		return nil, err
	}
	q.cache.replace(names)
	q.stat.recordWatcherInstall(ctx, q.dir)
	q.stat.recordQueueLength(int64(len(q.cache.snapshot())))
	return ch, nil
}

// watchLoop re-installs the child watch on every firing and replaces the
// cache, except for bare session-state events, which rearm the watch
// without touching the cache (see the watch-scope invariant).
func (q *Queue) watchLoop(ctx context.Context, ch <-chan coord.Event) {
	defer close(q.watchDone)
	backoff := 50 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				// Transport dropped the watch outright; reinstall after a
				// short backoff rather than spinning.
				time.Sleep(backoff)
				next, err := q.installWatch(ctx)
				if err != nil {
					continue
				}
				ch = next
				continue
			}
			if ev.IsSessionEvent() {
				_, _, next, err := q.conn.ChildrenW(ctx, q.dir)
				if err != nil {
					time.Sleep(backoff)
					continue
				}
				ch = next
				continue
			}
			next, err := q.installWatch(ctx)
			if err != nil {
				time.Sleep(backoff)
				continue
			}
			ch = next
		}
	}
}

// Peek returns the current head's payload, or (nil, false) if empty.
func (q *Queue) Peek(ctx context.Context) (payload []byte, ok bool, err error) {
	err = q.stat.timed(ctx, q.dir, "peek", 0, false, func() error {
		payload, ok, err = q.firstChild(ctx, false)
		return err
	})
	return
}

// PeekWait blocks up to waitMillis (or forever if waitMillis is
// math.MaxInt64) for an element, then returns its payload.
func (q *Queue) PeekWait(ctx context.Context, waitMillis int64) (payload []byte, ok bool, err error) {
	forever := waitMillis == math.MaxInt64
	err = q.stat.timed(ctx, q.dir, "peek", waitMillis, forever, func() error {
		payload, ok, err = q.blockingHead(ctx, waitMillis, false)
		return err
	})
	return
}

// Poll non-blockingly removes and returns the head, or (nil, false) if
// the queue is empty.
func (q *Queue) Poll(ctx context.Context) (payload []byte, ok bool, err error) {
	err = q.stat.timed(ctx, q.dir, "poll", 0, false, func() error {
		payload, ok, err = q.firstChild(ctx, true)
		return err
	})
	return
}

// Take blocks until it can remove and return a head.
func (q *Queue) Take(ctx context.Context) (payload []byte, err error) {
	err = q.stat.timed(ctx, q.dir, "take", 0, true, func() error {
		p, ok, e := q.blockingHead(ctx, math.MaxInt64, true)
		if e != nil {
			return e
		}
		if !ok {
			// blockingHead with an infinite deadline only returns
			// ok=false on context cancellation, already reported above.
			return ctx.Err()
		}
		payload = p
		return nil
	})
	return
}

// Remove is like Poll but returns ErrNoSuchElement instead of ok=false.
func (q *Queue) Remove(ctx context.Context) (payload []byte, err error) {
	err = q.stat.timed(ctx, q.dir, "remove", 0, false, func() error {
		p, ok, e := q.firstChild(ctx, true)
		if e != nil {
			return e
		}
		if !ok {
			return ErrNoSuchElement
		}
		payload = p
		return nil
	})
	return
}

// firstChild implements the head-selection algorithm: pick the smallest
// name in the cache, fetch (and optionally delete) its node, retrying on
// a "no such node" race until either a live head is found or the cache
// is exhausted. An exhausted cache is checked against a fresh (unwatched)
// listing of the directory before the queue is reported empty.
//
// The original source branches on cache emptiness twice in a row; the
// second branch is unreachable once the first returns, so only the first
// is implemented here.
func (q *Queue) firstChild(ctx context.Context, remove bool) ([]byte, bool, error) {
	for {
		name := q.cache.head()
		if name == "" {
			// The watch loop refreshes the cache asynchronously; re-read the
			// directory so a node created since the last refresh is not missed.
			names, _, err := q.conn.Children(ctx, q.dir)
			if err != nil {
				return nil, false, infraErr("firstChild", err)
			}
			fresh := false
			for _, n := range names {
				fresh = fresh || (len(n) > len(requestPrefix) && n[:len(requestPrefix)] == requestPrefix)
			}
			if !fresh {
				return nil, false, nil
			}
			q.cache.replace(names)
			continue
		}
		path := q.dir + "/" + name
		var payload []byte
		var err error
		if remove {
			payload, _, err = q.conn.Get(ctx, path)
			if err == nil {
				err = q.conn.Delete(ctx, path, -1)
			}
		} else {
			payload, _, err = q.conn.Get(ctx, path)
		}
		if err == nil {
			if remove {
				q.cache.removeLocal(name)
			}
			return payload, true, nil
		}
		if isNoNode(err) {
			// A peer already consumed it; drop from the local cache and
			// retry against the next-smallest candidate.
			q.cache.removeLocal(name)
			continue
		}
		return nil, false, infraErr("firstChild", err)
	}
}

// blockingHead loops firstChild under the cache-change signal until it
// succeeds, the deadline passes, or ctx is cancelled.
func (q *Queue) blockingHead(ctx context.Context, waitMillis int64, remove bool) ([]byte, bool, error) {
	var deadline time.Time
	if waitMillis != math.MaxInt64 {
		deadline = time.Now().Add(time.Duration(waitMillis) * time.Millisecond)
	}
	for {
		version := q.cache.snapshotVersion()
		payload, ok, err := q.firstChild(ctx, remove)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return payload, true, nil
		}
		changed, err := q.cache.wait(ctx, version, deadline)
		if err != nil {
			return nil, false, err
		}
		if !changed && !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, false, nil
		}
	}
}

// Offer creates a new persistent request node with the given payload.
func (q *Queue) Offer(ctx context.Context, payload []byte) (err error) {
	return q.stat.timed(ctx, q.dir, "offer", 0, false, func() error {
		if q.maxQueueSize > 0 {
			if full, cerr := q.checkCapacity(ctx); cerr != nil {
				return cerr
			} else if full {
				return ErrQueueFull
			}
		}
		_, cerr := q.conn.Create(ctx, q.dir+"/"+requestPrefix, payload, coord.PersistentSequential)
		if cerr != nil {
			if isNoNode(cerr) {
				// The directory itself is gone. The original retried by
				// recreating it; this repository surfaces the error
				// instead (see the open question on offer's fallback).
				return infraErr("offer", cerr)
			}
			return infraErr("offer", cerr)
		}
		return nil
	})
}

// checkCapacity implements the amortized credit check described in the
// capacity-bound design: consult the coordination service only once
// every ~1% of the bound's headroom.
func (q *Queue) checkCapacity(ctx context.Context) (full bool, err error) {
	q.creditMu.Lock()
	if q.credit > 0 {
		q.credit--
		q.creditMu.Unlock()
		return false, nil
	}
	q.creditMu.Unlock()

	_, st, err := q.conn.Exists(ctx, q.dir)
	if err != nil {
		return false, infraErr("offer.capacity", err)
	}
	n := 0
	if st != nil {
		n = int(st.NumChildren)
	}
	if n >= q.maxQueueSize {
		return true, nil
	}

	q.creditMu.Lock()
	q.credit = (q.maxQueueSize - n) / 100
	if q.credit > 0 {
		q.credit--
	}
	q.creditMu.Unlock()
	return false, nil
}

// PeekElements returns up to max entries whose short name and payload
// satisfy accept, waiting up to waitMillis if nothing matches yet.
func (q *Queue) PeekElements(ctx context.Context, max int, waitMillis int64, accept Accept) (elems []Element, err error) {
	if accept == nil {
		accept = AcceptAll
	}
	forever := waitMillis == math.MaxInt64
	err = q.stat.timed(ctx, q.dir, "peekElements", waitMillis, forever, func() error {
		var deadline time.Time
		if !forever {
			deadline = time.Now().Add(time.Duration(waitMillis) * time.Millisecond)
		}
		for {
			out, ferr := q.collectMatches(ctx, max, accept)
			if ferr != nil {
				return ferr
			}
			if len(out) > 0 {
				elems = out
				return nil
			}
			version := q.cache.snapshotVersion()
			changed, werr := q.cache.wait(ctx, version, deadline)
			if werr != nil {
				return werr
			}
			if !changed && !deadline.IsZero() && !time.Now().Before(deadline) {
				return nil
			}
		}
	})
	return
}

func (q *Queue) collectMatches(ctx context.Context, max int, accept Accept) ([]Element, error) {
	var out []Element
	for _, name := range q.cache.snapshot() {
		if len(out) >= max {
			break
		}
		payload, _, err := q.conn.Get(ctx, q.dir+"/"+name)
		if err != nil {
			if isNoNode(err) {
				continue
			}
			return nil, infraErr("peekElements", err)
		}
		if accept(name, payload) {
			out = append(out, Element{Name: name, Payload: payload})
		}
	}
	return out, nil
}

// RemoveMany deletes the named children (short names, not full paths) in
// batches of up to 1000 via an atomic multi-delete, falling back to
// per-node deletes for any batch that fails because a child is missing.
func (q *Queue) RemoveMany(ctx context.Context, names []string) (err error) {
	return q.stat.timed(ctx, q.dir, "removeMany", 0, false, func() error {
		const chunkSize = 1000
		for start := 0; start < len(names); start += chunkSize {
			end := start + chunkSize
			if end > len(names) {
				end = len(names)
			}
			if err := q.removeChunk(ctx, names[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *Queue) removeChunk(ctx context.Context, names []string) error {
	ops := make([]coord.Op, len(names))
	for i, n := range names {
		ops[i] = coord.DeleteOp(q.dir + "/" + n)
	}
	if err := q.conn.Multi(ctx, ops...); err != nil {
		for _, n := range names {
			if derr := q.conn.Delete(ctx, q.dir+"/"+n, -1); derr != nil && !isNoNode(derr) {
				return infraErr("removeMany", derr)
			}
			q.cache.removeLocal(n)
		}
		return nil
	}
	for _, n := range names {
		q.cache.removeLocal(n)
	}
	return nil
}

// Internals exposes the narrow capability contract RRQ composes over,
// per the redesign note decoupling RRQ from BQ's private fields.
type Internals interface {
	Dir() string
	Conn() coord.Conn
	CacheSnapshot() []string
	CacheWait(ctx context.Context, since uint64, deadline time.Time) (bool, error)
	CacheVersion() uint64
}

// Conn exposes the underlying coordination connection for RRQ's
// additional node operations (response nodes live in the same
// directory).
func (q *Queue) Conn() coord.Conn { return q.conn }

// CacheSnapshot exposes the current known-names set in ascending order.
func (q *Queue) CacheSnapshot() []string { return q.cache.snapshot() }

// CacheVersion exposes the current cache version counter.
func (q *Queue) CacheVersion() uint64 { return q.cache.snapshotVersion() }

// CacheWait exposes the bounded cache-change wait.
func (q *Queue) CacheWait(ctx context.Context, since uint64, deadline time.Time) (bool, error) {
	return q.cache.wait(ctx, since, deadline)
}

var _ Internals = (*Queue)(nil)
