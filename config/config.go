// Package config handles application configuration: data directories,
// fee policy, and logging. Settings come from a .conf file overridden
// by command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet address parameters.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Fee policy
	Fee FeeConfig

	// Logging
	Log LogConfig
}

// FeeConfig holds fee and sweep policy settings.
type FeeConfig struct {
	Rate          float64 `conf:"fee.rate"`            // sat/vB
	MaxSweepRatio float64 `conf:"fee.max_sweep_ratio"` // max fee fraction on sweeps
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.castellan
//	macOS:   ~/Library/Application Support/Castellan
//	Windows: %APPDATA%\Castellan
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".castellan"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Castellan")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Castellan")
		}
		return filepath.Join(home, "AppData", "Roaming", "Castellan")
	default:
		return filepath.Join(home, ".castellan")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the encrypted wallet file directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// BookDir returns the address book database directory.
func (c *Config) BookDir() string {
	return filepath.Join(c.NetworkDataDir(), "book")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "castellan.conf")
}
