package runtime

import (
	"context"
	"fmt"

	cfgpkg "github.com/rzbill/zkq/internal/config"
	"github.com/rzbill/zkq/internal/coord"
	"github.com/rzbill/zkq/internal/namespace"
	"github.com/rzbill/zkq/internal/queue/bq"
	"github.com/rzbill/zkq/internal/queue/rrq"
	logpkg "github.com/rzbill/zkq/pkg/log"
	"go.opentelemetry.io/otel/metric"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	// Conn, when set, is used instead of dialing Config.Coordination.
	// Tests inject an in-memory coordtest.Conn here.
	Conn coord.Conn
	// Meter supplies OpenTelemetry instruments for opened queues; nil
	// disables stats.
	Meter metric.MeterProvider
	// Logger, when set and Conn is unset, is handed to the dialed
	// coordination client so its own connection-state logging lands on
	// the same pipeline as the rest of the process.
	Logger logpkg.Logger
	// NowMs supplies the current time in epoch milliseconds for queue-dir
	// bootstrap metadata. Defaults to a real-clock reading.
	NowMs func() int64
}

// Runtime wires a coordination-service connection, config, and queue
// facades for a single zkq process.
type Runtime struct {
	conn      coord.Conn
	ownedConn bool
	config    cfgpkg.Config
	meter     metric.MeterProvider
	nowMs     func() int64
}

// Open connects to the coordination ensemble (unless opts.Conn is set)
// and returns a Runtime ready to open queues under it.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	conn := opts.Conn
	owned := false
	if conn == nil {
		dialOpts := coord.DialOptions{
			Servers:        opts.Config.Coordination.Servers,
			SessionTimeout: opts.Config.Coordination.SessionTimeout,
		}
		if opts.Logger != nil {
			dialOpts.Logger = opts.Logger.Slog()
		}
		zc, _, err := coord.Dial(dialOpts)
		if err != nil {
			return nil, fmt.Errorf("runtime: dial coordination ensemble: %w", err)
		}
		conn = zc
		owned = true
	}

	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = defaultNowMs
	}

	return &Runtime{
		conn:      conn,
		ownedConn: owned,
		config:    opts.Config,
		meter:     opts.Meter,
		nowMs:     nowMs,
	}, nil
}

// Close releases the underlying coordination-service session if this
// Runtime dialed it itself.
func (r *Runtime) Close() error {
	if !r.ownedConn {
		return nil
	}
	if zc, ok := r.conn.(*coord.ZKConn); ok {
		zc.Close()
	}
	return nil
}

// CheckHealth verifies the coordination-service session is usable by
// ensuring the configured queue root and its metadata child exist,
// creating them if they are missing.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	_, err := namespace.EnsureQueueDir(ctx, r.conn, r.config.QueueRoot, r.config.DefaultMaxQueueSize, r.nowMs())
	return err
}

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Conn exposes the underlying coordination-service connection for
// advanced callers (namespace bootstrap, diagnostics).
func (r *Runtime) Conn() coord.Conn { return r.conn }

// queuePath joins the configured queue root with a queue name.
func (r *Runtime) queuePath(name string) string {
	if name == "" || name == "/" {
		return r.config.QueueRoot
	}
	return r.config.QueueRoot + "/" + name
}

// OpenBaseQueue ensures the named queue directory exists under the
// configured queue root and opens a Base Queue over it.
func (r *Runtime) OpenBaseQueue(ctx context.Context, name string, maxQueueSize int) (*bq.Queue, error) {
	dir := r.queuePath(name)
	size := maxQueueSize
	if size == 0 {
		size = r.config.DefaultMaxQueueSize
	}
	if _, err := namespace.EnsureQueueDir(ctx, r.conn, dir, size, r.nowMs()); err != nil {
		return nil, err
	}
	return bq.Open(ctx, r.conn, dir, bq.Options{MaxQueueSize: size, Meter: r.meter})
}

// OpenRequestResponseQueue ensures the named queue directory exists and
// opens a Request/Response Queue over it.
func (r *Runtime) OpenRequestResponseQueue(ctx context.Context, name string, maxQueueSize int) (*rrq.RRQ, error) {
	dir := r.queuePath(name)
	size := maxQueueSize
	if size == 0 {
		size = r.config.DefaultMaxQueueSize
	}
	if _, err := namespace.EnsureQueueDir(ctx, r.conn, dir, size, r.nowMs()); err != nil {
		return nil, err
	}
	return rrq.Open(ctx, r.conn, dir, rrq.Options{BQ: bq.Options{MaxQueueSize: size, Meter: r.meter}, Meter: r.meter})
}
