package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns the default config file location based on
// the host OS. It prefers standard locations when available and falls
// back to a dotfile in the user's home directory.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./zkq.yaml"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zkq", "config.yaml")
	}

	// Common Linux/Unix system dir
	if isDir("/etc") {
		return "/etc/zkq/config.yaml"
	}

	// macOS: ~/Library/Application Support/zkq
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "zkq", "config.yaml")
	}

	// Windows: %USERPROFILE%/AppData/Local/zkq
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "zkq", "config.yaml")
	}

	// Fallback: ~/.zkq/config.yaml
	return filepath.Join(homeDir, ".zkq", "config.yaml")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
