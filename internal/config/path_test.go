package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigPathXDGOverride(t *testing.T) {
	originalXDG := os.Getenv("XDG_CONFIG_HOME")
	t.Cleanup(func() {
		if originalXDG != "" {
			os.Setenv("XDG_CONFIG_HOME", originalXDG)
		} else {
			os.Unsetenv("XDG_CONFIG_HOME")
		}
	})

	os.Setenv("XDG_CONFIG_HOME", "/custom/config")

	result := DefaultConfigPath()
	expected := "/custom/config/zkq/config.yaml"
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}

func TestDefaultConfigPathNoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	os.Unsetenv("HOME")
	t.Cleanup(func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		}
	})

	result := DefaultConfigPath()
	if result == "" {
		t.Error("expected non-empty result even when HOME is not set")
	}
}

func TestIsDir(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{
			name:     "existing directory",
			path:     ".",
			expected: true,
		},
		{
			name:     "non-existent path",
			path:     "/non/existent/path/that/does/not/exist",
			expected: false,
		},
		{
			name:     "file instead of directory",
			path:     os.Args[0],
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isDir(tt.path)
			if result != tt.expected {
				t.Errorf("isDir(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestDefaultConfigPathCrossPlatform(t *testing.T) {
	result := DefaultConfigPath()

	if result == "" {
		t.Error("DefaultConfigPath should not return empty string")
	}

	if !filepath.IsAbs(result) && !strings.HasPrefix(result, "./") {
		t.Errorf("DefaultConfigPath should return absolute path or start with ./, got %s", result)
	}

	if !strings.Contains(result, "zkq") {
		t.Errorf("DefaultConfigPath should contain 'zkq' in the path, got %s", result)
	}
}

func TestDefaultConfigPathConsistency(t *testing.T) {
	result1 := DefaultConfigPath()
	result2 := DefaultConfigPath()

	if result1 != result2 {
		t.Errorf("DefaultConfigPath should be consistent, got %s and %s", result1, result2)
	}
}
