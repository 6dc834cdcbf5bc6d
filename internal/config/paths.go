package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDirectory returns the per-user directory holding config.csv.
//
// Locations:
//   - Windows: %APPDATA%\sf-attachments
//   - Unix: ~/.config/sf-attachments
func ConfigDirectory() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "sf-attachments")
		}
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "sf-attachments")
		}
		return filepath.Join(homeDir, ".config", "sf-attachments")
	}
	return filepath.Join(configDir, "sf-attachments")
}

// DefaultConfigPath returns the config file used when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), "config.csv")
}
