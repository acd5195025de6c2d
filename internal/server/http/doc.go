// Package httpserver provides a minimal JSON HTTP gateway over the Base
// Queue and Request/Response Queue operations, for use by the zkq CLI
// client and other administrative tooling.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	logger, _ := log.ApplyConfig(&log.Config{Level: "info", Format: "text"})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
