package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv overlays ZKQ_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("ZKQ_COORDINATION_SERVERS"); v != "" {
		var servers []string
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				servers = append(servers, p)
			}
		}
		if servers != nil {
			cfg.Coordination.Servers = servers
		}
	}
	if v := os.Getenv("ZKQ_COORDINATION_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Coordination.SessionTimeout = d
		}
	}
	if v := os.Getenv("ZKQ_QUEUE_ROOT"); v != "" {
		cfg.QueueRoot = v
	}
	if v := os.Getenv("ZKQ_DEFAULT_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultMaxQueueSize = n
		}
	}
	if v := os.Getenv("ZKQ_ACCEPT_CEL_EXPRESSION"); v != "" {
		cfg.Accept.CELExpression = v
	}
	if v := os.Getenv("ZKQ_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ZKQ_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ZKQ_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
}
