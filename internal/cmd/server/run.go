package serverrun

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/zkq/internal/config"
	"github.com/rzbill/zkq/internal/runtime"
	httpserver "github.com/rzbill/zkq/internal/server/http"
	"github.com/rzbill/zkq/internal/telemetry"
	logpkg "github.com/rzbill/zkq/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Options configures a single zkq server process.
type Options struct {
	HTTPAddr string
	Config   cfgpkg.Config
}

// Run connects to the coordination ensemble, starts the HTTP admin API,
// and blocks until ctx is cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}

	cfg := &logpkg.Config{
		Level:  getenvDefault("ZKQ_LOG_LEVEL", opts.Config.Log.Level),
		Format: getenvDefault("ZKQ_LOG_FORMAT", opts.Config.Log.Format),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ParseLevel(cfg.Level)), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	restoreStdLog := logpkg.RedirectStdLog(procLogger)
	defer restoreStdLog()

	procLogger.Info("starting zkq server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("coordination", firstOrEmpty(opts.Config.Coordination.Servers)),
		logpkg.Str("queueRoot", opts.Config.QueueRoot),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
	)

	meterProvider, err := telemetry.NewMeterProvider("zkq")
	if err != nil {
		return err
	}
	defer telemetry.Shutdown(context.Background(), meterProvider)

	rt, err := runtime.Open(sctx, runtime.Options{Config: opts.Config, Logger: procLogger, Meter: meterProvider})
	if err != nil {
		return err
	}
	defer rt.Close()

	hsrv := httpserver.New(rt, procLogger.With(logpkg.Component("http")))

	errCh := make(chan error, 1)
	go func() {
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			log.Printf("http error: %v", err)
			errCh <- err
			return
		}
		errCh <- nil
	}()

	<-sctx.Done()
	hsrv.Close()
	<-errCh
	return nil
}

func firstOrEmpty(servers []string) string {
	if len(servers) == 0 {
		return ""
	}
	return servers[0]
}
