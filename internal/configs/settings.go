package configs

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "kaitiaki"

// Environment variables read by Load.
const (
	EnvConfig = "KAITIAKI_CONFIG"
	EnvVault  = "KAITIAKI_VAULT"
)

// DataDir returns $XDG_DATA_HOME/kaitiaki, falling back to ~/.local/share/kaitiaki.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, appName), nil
}

// ConfigDir returns the per-user configuration directory for kaitiaki.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
