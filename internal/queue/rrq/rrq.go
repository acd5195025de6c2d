package rrq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rzbill/zkq/internal/coord"
	"github.com/rzbill/zkq/internal/queue/bq"
	"go.opentelemetry.io/otel/metric"
)

const responsePrefix = "qnr-"

// Result is the outcome of OfferAndWait from the submitter's viewpoint.
type Result struct {
	// ID is the full path of the response node.
	ID string
	// Bytes is the final response-node payload. Empty on timeout.
	Bytes []byte
	// Watched is the event observed by the latch, if any fired before the
	// deadline. Its zero value means no watcher fire was observed.
	Watched coord.Event
	// TimedOut is true when the deadline passed with no watcher fire.
	TimedOut bool
}

// RRQ composes a Request/Response Queue over a Base Queue, reached only
// through the bq.Internals capability contract plus the embedded Queue's
// public operations (Peek, Poll, Take, Offer, RemoveMany, PeekElements).
type RRQ struct {
	*bq.Queue
	internals bq.Internals
	pending   *pendingGroup
}

// Options configures an RRQ on top of Options also accepted by bq.Open.
type Options struct {
	BQ    bq.Options
	Meter metric.MeterProvider
}

// Open constructs an RRQ over dir. dir must already exist.
func Open(ctx context.Context, conn coord.Conn, dir string, opts Options) (*RRQ, error) {
	q, err := bq.Open(ctx, conn, dir, opts.BQ)
	if err != nil {
		return nil, err
	}
	pending, err := newPendingGroup(opts.Meter)
	if err != nil {
		q.Close()
		return nil, err
	}
	return &RRQ{Queue: q, internals: q, pending: pending}, nil
}

func suffixOf(path, prefix string) string {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	return strings.TrimPrefix(name, prefix)
}

// OfferAndWait creates a response node, then a paired request node with
// payload, and waits up to timeoutMillis for the consumer to publish a
// reply. Response-node-first, request-node-second ordering is load
// bearing: reversed, a fast consumer could reply before the submitter
// installed its watch.
func (r *RRQ) OfferAndWait(ctx context.Context, payload []byte, timeoutMillis int64) (res Result, err error) {
	dir := r.internals.Dir()
	conn := r.internals.Conn()

	respPath, err := conn.Create(ctx, dir+"/"+responsePrefix, nil, coord.EphemeralSequential)
	if err != nil {
		return Result{}, bqInfraErr("offerAndWait.createResponse", err)
	}
	suffix := suffixOf(respPath, responsePrefix)

	initialData, _, watchCh, err := conn.GetW(ctx, respPath)
	if err != nil {
		return Result{}, bqInfraErr("offerAndWait.watchResponse", err)
	}

	reqPath := dir + "/qn-" + suffix
	if _, err := conn.Create(ctx, reqPath, payload, coord.Persistent); err != nil {
		return Result{}, bqInfraErr("offerAndWait.createRequest", err)
	}

	r.pending.inc(ctx)
	defer r.pending.dec(ctx)

	latch := NewLatch(func(ev coord.Event) bool { return ev.Type == coord.EventDataChanged || ev.Type == coord.EventNodeDeleted })
	latch.Pump(watchCh)

	finalData := initialData
	var watched coord.Event
	timedOut := false
	if len(initialData) == 0 {
		var deadline time.Time
		if timeoutMillis != math.MaxInt64 {
			deadline = time.Now().Add(time.Duration(timeoutMillis) * time.Millisecond)
		}
		ev, ok, werr := latch.Await(ctx, deadline)
		if werr != nil {
			return Result{}, werr
		}
		if ok {
			watched = ev
		} else {
			timedOut = true
		}
		data, _, rerr := conn.Get(ctx, respPath)
		if rerr != nil && !isNoNode(rerr) {
			return Result{}, bqInfraErr("offerAndWait.reread", rerr)
		}
		finalData = data
	}

	// Build the result before deleting the response node: the watcher may
	// otherwise fire a delete event that overwrites it.
	res = Result{ID: respPath, Bytes: finalData, Watched: watched, TimedOut: timedOut}

	if derr := conn.Delete(ctx, respPath, -1); derr != nil && !isNoNode(derr) {
		return res, bqInfraErr("offerAndWait.teardown", derr)
	}
	return res, nil
}

// RemoveWithResponse is the consumer-side counterpart to OfferAndWait:
// given the full path of a pulled request node (D/qn-<S>), it writes
// reply onto the paired response node D/qnr-<S> (tolerating its absence,
// the submitter may have gone away) and deletes the request node (also
// tolerating absence).
func (r *RRQ) RemoveWithResponse(ctx context.Context, requestPath string, reply []byte) error {
	conn := r.internals.Conn()
	dir := requestPath
	suffix := suffixOf(requestPath, "qn-")
	if i := strings.LastIndex(requestPath, "/"); i >= 0 {
		dir = requestPath[:i]
	}
	respPath := dir + "/" + responsePrefix + suffix

	if _, err := conn.Set(ctx, respPath, reply, -1); err != nil && !isNoNode(err) {
		return bqInfraErr("removeWithResponse.setResponse", err)
	}
	if err := conn.Delete(ctx, requestPath, -1); err != nil && !isNoNode(err) {
		return bqInfraErr("removeWithResponse.deleteRequest", err)
	}
	return nil
}

// AwaitPendingResponses blocks until every in-flight OfferAndWait call
// has observed a reply or timed out, so a host can let submitters
// observe their replies before session teardown.
func (r *RRQ) AwaitPendingResponses(ctx context.Context) error {
	return r.pending.awaitZero(ctx)
}

// ContainsRequestWithId scans the live children of the directory
// (bypassing the cache) and decodes each request payload as a JSON
// key-value envelope, returning true iff any envelope has
// envelope[key] == id. Nodes that vanish mid-scan are skipped. This is
// explicitly inefficient and intended only for duplicate-submission
// detection.
func (r *RRQ) ContainsRequestWithId(ctx context.Context, key, id string) (bool, error) {
	conn := r.internals.Conn()
	dir := r.internals.Dir()
	names, _, err := conn.Children(ctx, dir)
	if err != nil {
		return false, bqInfraErr("containsRequestWithId", err)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "qn-") {
			continue
		}
		payload, _, err := conn.Get(ctx, dir+"/"+name)
		if err != nil {
			if isNoNode(err) {
				continue
			}
			return false, bqInfraErr("containsRequestWithId", err)
		}
		var envelope map[string]string
		if err := json.Unmarshal(payload, &envelope); err != nil {
			continue
		}
		if envelope[key] == id {
			return true, nil
		}
	}
	return false, nil
}

// TailId snapshots the cache into a descending iteration and returns the
// full path of the first name whose underlying node still exists,
// tolerating already-deleted names by probing the next-smallest.
func (r *RRQ) TailId(ctx context.Context) (string, bool, error) {
	names := r.internals.CacheSnapshot()
	conn := r.internals.Conn()
	dir := r.internals.Dir()
	for i := len(names) - 1; i >= 0; i-- {
		path := dir + "/" + names[i]
		ok, _, err := conn.Exists(ctx, path)
		if err != nil {
			return "", false, bqInfraErr("tailId", err)
		}
		if ok {
			return path, true, nil
		}
	}
	return "", false, nil
}

func isNoNode(err error) bool { return errors.Is(err, coord.ErrNoNode) }

func bqInfraErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("rrq: %s: %w", op, err)
}
