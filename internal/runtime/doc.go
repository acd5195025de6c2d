// Package runtime wires a coordination-service connection, config, and
// queue facades into a single zkq process. It exposes Open/Close, a
// basic health check, and helpers to open Base Queues and
// Request/Response Queues rooted under the configured queue root.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	q, _ := rt.OpenBaseQueue(ctx, "orders", 0)
//	_ = q.Offer(ctx, []byte("hello"))
package runtime
