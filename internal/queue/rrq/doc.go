// Package rrq extends the base distributed queue (internal/queue/bq)
// with a request/response rendezvous: each OfferAndWait call creates a
// short-lived ephemeral response node that the submitter watches, while
// a consumer publishes a reply by writing bytes onto that node and
// deleting the paired request. RRQ reaches the base queue only through
// the bq.Internals capability contract plus its embedded public
// operations, never its private fields.
//
// Example:
//
//	q, err := rrq.Open(ctx, conn, "/queues/rpc", rrq.Options{})
//	if err != nil { ... }
//	defer q.Close()
//	res, err := q.OfferAndWait(ctx, []byte("ping"), 5000)
package rrq
