package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/rzbill/zkq/internal/cmd/client"
	serverrun "github.com/rzbill/zkq/internal/cmd/server"
	cfgpkg "github.com/rzbill/zkq/internal/config"
	logpkg "github.com/rzbill/zkq/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	level := os.Getenv("ZKQ_LOG_LEVEL")
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.ParseLevel(level)),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput(nil)),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "zkq",
		Short: "zkq runtime CLI",
		Long:  "zkq is a distributed FIFO queue over a coordination service. This CLI manages the server and queue operations.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the zkq server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			httpAddr, _ := cmd.Flags().GetString("http")
			servers, _ := cmd.Flags().GetStringArray("coordination")
			queueRoot, _ := cmd.Flags().GetString("queue-root")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if len(servers) > 0 {
				cfg.Coordination.Servers = servers
			}
			if queueRoot != "" {
				cfg.QueueRoot = queueRoot
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{HTTPAddr: cfg.HTTPAddr, Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to a JSON or YAML config file")
	serverStartCmd.Flags().String("http", "", "HTTP admin API listen address (overrides config)")
	serverStartCmd.Flags().StringArray("coordination", nil, "Coordination-service address (repeat; overrides config)")
	serverStartCmd.Flags().String("queue-root", "", "Root directory under which queues are created (overrides config)")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewQueueCommand(httpAddrFromFlagOrEnv))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func httpAddrFromFlagOrEnv() string {
	if v := os.Getenv("ZKQ_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
