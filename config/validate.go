package config

import "fmt"

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Network {
	case Mainnet, Testnet:
	default:
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if c.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if c.Fee.Rate <= 0 {
		return fmt.Errorf("fee.rate must be positive, got %v", c.Fee.Rate)
	}
	if c.Fee.MaxSweepRatio <= 0 || c.Fee.MaxSweepRatio > 1 {
		return fmt.Errorf("fee.max_sweep_ratio must be in (0, 1], got %v", c.Fee.MaxSweepRatio)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
