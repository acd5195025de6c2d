package bq

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// stats wraps the OpenTelemetry instruments a BQ instance uses to satisfy
// the observability surface: per-op timers keyed by directory+operation,
// success/failure counters, a queue-length gauge, and a watcher-install
// counter.
type stats struct {
	opDuration     metric.Float64Histogram
	opOutcomes     metric.Int64Counter
	watcherInstall metric.Int64Counter
	queueLength    metric.Int64ObservableGauge
	lastLen        atomic.Int64
}

func newStats(mp metric.MeterProvider) (*stats, error) {
	meter := mp.Meter("zkq.bq", metric.WithInstrumentationVersion("v1"))
	s := new(stats)
	var err error

	if s.opDuration, err = meter.Float64Histogram(
		"zkq_bq_op_duration_seconds",
		metric.WithDescription("Duration of base-queue operations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if s.opOutcomes, err = meter.Int64Counter(
		"zkq_bq_op_total",
		metric.WithDescription("Base-queue operations by outcome"),
	); err != nil {
		return nil, err
	}
	if s.watcherInstall, err = meter.Int64Counter(
		"zkq_bq_watcher_installs_total",
		metric.WithDescription("Number of child-list watches installed"),
	); err != nil {
		return nil, err
	}
	if s.queueLength, err = meter.Int64ObservableGauge(
		"zkq_bq_queue_length",
		metric.WithDescription("Last observed count of request nodes"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(s.lastLen.Load())
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return s, nil
}

// timed wraps f, recording duration and outcome under key "<dir>_<op>".
// waitMillis, when non-zero, is folded into the metric key per the spec's
// "<dir>_<op>_wait<millis>" / "<dir>_<op>_wait_forever" naming.
func (s *stats) timed(ctx context.Context, dir, op string, waitMillis int64, forever bool, f func() error) error {
	key := dir + "_" + op
	if forever {
		key += "_wait_forever"
	} else if waitMillis > 0 {
		key += "_wait" + itoa(waitMillis)
	}
	start := time.Now()
	err := f()
	if s == nil {
		return err
	}
	attrs := []attribute.KeyValue{attribute.String("op", key)}
	outcome := "ok"
	if err != nil && !isNoNode(err) {
		outcome = "error"
		attrs = append(attrs, attribute.String("reason", err.Error()))
	}
	attrs = append(attrs, attribute.String("outcome", outcome))
	s.opDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	s.opOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
	return err
}

func (s *stats) recordQueueLength(n int64) {
	if s == nil {
		return
	}
	s.lastLen.Store(n)
}

func (s *stats) recordWatcherInstall(ctx context.Context, dir string) {
	if s == nil {
		return
	}
	s.watcherInstall.Add(ctx, 1, metric.WithAttributes(attribute.String("dir", dir)))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	bp := len(buf)
	for n > 0 {
		bp--
		buf[bp] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		bp--
		buf[bp] = '-'
	}
	return string(buf[bp:])
}
