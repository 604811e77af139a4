// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Endpoints holds the remote addresses and timeouts injected into the
// extraction client at construction time. Workflow packages never read
// ambient configuration directly.
type Endpoints struct {
	ExtractionURL string
	Timeout       time.Duration
}

// Limits bounds batch intake and processing.
type Limits struct {
	MaxFileBytes int64
	MaxInFlight  int
}

// DefaultLimits returns the default intake limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes: 10 << 20, // 10 MiB
		MaxInFlight:  3,
	}
}

// LoadEndpoints resolves endpoint configuration from Viper (config file
// or LEDGERFLOW_ env vars).
func LoadEndpoints() (*Endpoints, error) {
	ep := &Endpoints{
		ExtractionURL: viper.GetString("extraction.url"),
		Timeout:       viper.GetDuration("extraction.timeout"),
	}
	if ep.ExtractionURL == "" {
		return nil, fmt.Errorf("extraction.url is not configured")
	}
	if ep.Timeout <= 0 {
		ep.Timeout = 60 * time.Second
	}
	return ep, nil
}

// LoadLimits resolves intake limits from Viper, falling back to defaults.
func LoadLimits() Limits {
	limits := DefaultLimits()
	if v := viper.GetInt64("intake.max_file_bytes"); v > 0 {
		limits.MaxFileBytes = v
	}
	if v := viper.GetInt("intake.max_in_flight"); v > 0 {
		limits.MaxInFlight = v
	}
	return limits
}

// DatabasePath returns the configured balance store path.
func DatabasePath() string {
	if v := viper.GetString("database.path"); v != "" {
		return ExpandPath(v)
	}
	return ExpandPath("~/.local/share/ledgerflow/ledgerflow.db")
}
