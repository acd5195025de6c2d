package serverrun

import (
	"context"
	"os"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/zkq/internal/config"
)

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		expected string
	}{
		{
			name:     "environment variable set",
			key:      "TEST_VAR",
			def:      "default",
			envValue: "env_value",
			expected: "env_value",
		},
		{
			name:     "environment variable not set",
			key:      "TEST_VAR_NOT_SET",
			def:      "default",
			envValue: "",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				_ = os.Setenv(tt.key, tt.envValue)
			} else {
				_ = os.Unsetenv(tt.key)
			}
			t.Cleanup(func() {
				_ = os.Unsetenv(tt.key)
			})

			result := getenvDefault(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("getenvDefault(%s, %s) = %s, expected %s", tt.key, tt.def, result, tt.expected)
			}
		})
	}
}

func TestOptionsValidation(t *testing.T) {
	opts := Options{
		HTTPAddr: ":8080",
		Config:   cfgpkg.Default(),
	}

	if opts.HTTPAddr == "" {
		t.Error("HTTPAddr should not be empty")
	}
	if len(opts.Config.Coordination.Servers) == 0 {
		t.Error("Config should have default coordination servers")
	}
}

func TestFirstOrEmpty(t *testing.T) {
	if got := firstOrEmpty(nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := firstOrEmpty([]string{"zk1:2181", "zk2:2181"}); got != "zk1:2181" {
		t.Errorf("expected zk1:2181, got %q", got)
	}
}

// TestRunIntegration exercises Run against an ensemble address that will
// never accept a connection (zk.Connect dials asynchronously, so Run
// starts its HTTP listener and returns cleanly once ctx is cancelled
// rather than blocking forever).
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := cfgpkg.Default()
	cfg.Coordination.Servers = []string{"127.0.0.1:1"}
	cfg.Coordination.SessionTimeout = 50 * time.Millisecond

	opts := Options{
		HTTPAddr: ":0",
		Config:   cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
