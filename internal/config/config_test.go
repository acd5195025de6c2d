package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.QueueRoot != "/zkq/queues" {
		t.Fatalf("default queue root")
	}
	if cfg.Coordination.SessionTimeout != 10*time.Second {
		t.Fatalf("default session timeout")
	}
	if len(cfg.Coordination.Servers) == 0 {
		t.Fatalf("default servers should not be empty")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "zkq.json")
	data := []byte(`{"queueRoot":"/custom/queues","defaultMaxQueueSize":500,"coordination":{"servers":["zk1:2181","zk2:2181"]}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueRoot != "/custom/queues" {
		t.Fatalf("expected custom queue root, got %q", cfg.QueueRoot)
	}
	if cfg.DefaultMaxQueueSize != 500 {
		t.Fatalf("expected 500")
	}
	if len(cfg.Coordination.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Coordination.Servers)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "zkq.yaml")
	data := []byte("queueRoot: /custom/queues\ndefaultMaxQueueSize: 250\ncoordination:\n  servers:\n    - zk1:2181\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueRoot != "/custom/queues" {
		t.Fatalf("expected custom queue root, got %q", cfg.QueueRoot)
	}
	if cfg.DefaultMaxQueueSize != 250 {
		t.Fatalf("expected 250")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("ZKQ_QUEUE_ROOT", "/env/queues")
	os.Setenv("ZKQ_DEFAULT_MAX_QUEUE_SIZE", "999")
	os.Setenv("ZKQ_LOG_LEVEL", "debug")
	t.Cleanup(func() {
		os.Unsetenv("ZKQ_QUEUE_ROOT")
		os.Unsetenv("ZKQ_DEFAULT_MAX_QUEUE_SIZE")
		os.Unsetenv("ZKQ_LOG_LEVEL")
	})
	FromEnv(&cfg)
	if cfg.QueueRoot != "/env/queues" {
		t.Fatalf("env override queue root")
	}
	if cfg.DefaultMaxQueueSize != 999 {
		t.Fatalf("env override max queue size")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("env override log level")
	}
}
