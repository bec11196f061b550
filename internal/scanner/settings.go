package scanner

import (
	"fmt"
	"time"

	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/scancache"
	"github.com/mbd888/fountainscan/internal/signals"
)

// Settings are the runtime-adjustable knobs of the engine.
type Settings struct {
	Thresholds   risk.Thresholds
	Freshness    time.Duration
	Expiry       time.Duration
	ProbeTimeout time.Duration

	AlertsEnabled    bool
	BlockingEnabled  bool
	RealTimeScanning bool
	AutoUpdate       bool
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:       risk.DefaultThresholds(),
		Freshness:        scancache.DefaultFreshness,
		Expiry:           scancache.DefaultExpiry,
		ProbeTimeout:     signals.DefaultProbeTimeout,
		AlertsEnabled:    true,
		BlockingEnabled:  false,
		RealTimeScanning: true,
		AutoUpdate:       true,
	}
}

// Validate checks thresholds and windows.
func (s Settings) Validate() error {
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}
	if s.Freshness <= 0 {
		return fmt.Errorf("freshness window must be positive, got %s", s.Freshness)
	}
	if s.Expiry < s.Freshness {
		return fmt.Errorf("expiry %s must not be shorter than freshness %s", s.Expiry, s.Freshness)
	}
	if s.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", s.ProbeTimeout)
	}
	return nil
}

// Policy derives the alert/block policy from the toggles.
func (s Settings) Policy() risk.Policy {
	return risk.Policy{AlertsEnabled: s.AlertsEnabled, BlockingEnabled: s.BlockingEnabled}
}
