package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a zkq server process.
type Config struct {
	Coordination CoordinationConfig `json:"coordination" yaml:"coordination"`
	QueueRoot    string             `json:"queueRoot" yaml:"queueRoot"`
	DefaultMaxQueueSize int         `json:"defaultMaxQueueSize" yaml:"defaultMaxQueueSize"`
	Accept       AcceptConfig       `json:"accept" yaml:"accept"`
	Log          LogConfig          `json:"log" yaml:"log"`
	HTTPAddr     string             `json:"httpAddr" yaml:"httpAddr"`
}

// CoordinationConfig describes how to reach the coordination-service
// ensemble.
type CoordinationConfig struct {
	Servers        []string      `json:"servers" yaml:"servers"`
	SessionTimeout time.Duration `json:"sessionTimeout" yaml:"sessionTimeout"`
}

// AcceptConfig configures the default PeekElements predicate.
type AcceptConfig struct {
	CELExpression string `json:"celExpression" yaml:"celExpression"`
}

// LogConfig configures the process-wide logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Coordination: CoordinationConfig{
			Servers:        []string{"127.0.0.1:2181"},
			SessionTimeout: 10 * time.Second,
		},
		QueueRoot:           "/zkq/queues",
		DefaultMaxQueueSize: 0,
		Log:                 LogConfig{Level: "info", Format: "text"},
		HTTPAddr:            ":8080",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If
// path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
