// Package config provides configuration helpers for go-marcus commands.
package config

import (
	"os"
	"path/filepath"
)

// Defaults for the assistant runtime.
const (
	DefaultDashboardPort = "8181"
	DefaultModel         = "models/gemini-2.0-flash-exp"
	DefaultVoice         = "Puck"
)

// GoogleAPIKey returns the Gemini API key from GOOGLE_API_KEY.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

// DataDir returns the directory for assistant state (transcripts, entities).
// Honors MARCUS_DATA_DIR, falling back to ~/.marcus.
func DataDir() string {
	if dir := os.Getenv("MARCUS_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".marcus"
	}
	return filepath.Join(home, ".marcus")
}

// DashboardPort returns the dashboard HTTP port from MARCUS_PORT or default.
func DashboardPort() string {
	if port := os.Getenv("MARCUS_PORT"); port != "" {
		return port
	}
	return DefaultDashboardPort
}

// BridgeURL returns the remote command-bridge URL from MARCUS_BRIDGE_URL.
// Empty means no bridge is configured.
func BridgeURL() string {
	return os.Getenv("MARCUS_BRIDGE_URL")
}
