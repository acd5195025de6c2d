// Package bq implements the base distributed FIFO queue: an ordered set
// of request nodes living as children of a directory on a coordination
// service (see internal/coord). It keeps an in-memory advisory cache of
// known child names, coherent via a single outstanding child-list watch,
// and exposes peek/poll/take/offer/removeMany/peekElements.
//
// The design target is one consumer goroutine and many producer
// goroutines per directory; correctness (no duplicate or lost delivery)
// holds under multiple consumers too, but throughput is not tuned for it.
//
// Example:
//
//	q, err := bq.Open(ctx, conn, "/queues/jobs", bq.Options{MaxQueueSize: 1000})
//	if err != nil { ... }
//	defer q.Close()
//	_ = q.Offer(ctx, []byte("payload"))
//	payload, err := q.Take(ctx)
package bq
