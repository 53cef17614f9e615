package config

import (
	"log"
	"os"
	"path/filepath"
)

// LogFilenameEnv is the environment variable naming the log destination.
const LogFilenameEnv = "OSCILOK_LOG_FILENAME"

// defaultLogPath is where the log goes when LogFilenameEnv is unset:
// <home>/.oscilok/log/oscilok.log.
func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".oscilok", "log", "oscilok.log")
}

// ResolveLogPath returns the log file path: the env var if set, otherwise
// the per-user default.
func ResolveLogPath() string {
	if p := os.Getenv(LogFilenameEnv); p != "" {
		return p
	}
	return defaultLogPath()
}

// OpenLogger opens (creating parent directories as needed) the resolved
// log file and returns a logger writing to it plus its Close. If the file
// cannot be opened, it falls back to stderr and returns that reason as
// the returned error is non-nil only in that fallback case — callers may
// choose to ignore it and keep running.
func OpenLogger() (*log.Logger, func() error, error) {
	path := ResolveLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() error { return nil }, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() error { return nil }, err
	}
	return log.New(f, "", log.LstdFlags), f.Close, nil
}
