package config

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.smsterm.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".smsterm")
}

// ConfigPath returns the global config file path. A config.toml in the
// working directory takes priority, matching portable installs.
func ConfigPath() string {
	local := "smsterm-config.toml"
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(BaseDir(), "config.toml")
}

// LockPath returns the single-instance lock file path.
func LockPath() string {
	return filepath.Join(BaseDir(), "LOCK")
}

// PhonebookDBPath returns the app-owned smsterm.db path.
func PhonebookDBPath() string {
	return filepath.Join(BaseDir(), "smsterm.db")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "smsterm.log")
}

// EnsureDirs creates the app directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
