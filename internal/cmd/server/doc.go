// Package serverrun exposes a shared Run entrypoint used by the CLI to
// start a zkq server process, handling runtime wiring and graceful
// shutdown.
//
// Example:
//
//	opts := serverrun.Options{HTTPAddr: ":8080", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
