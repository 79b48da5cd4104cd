package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	if err := c.validateRecovery(); err != nil {
		return err
	}
	if c.History.Limit <= 0 || c.History.Limit > maxHistoryLimit {
		return fmt.Errorf("history.limit must be between 1 and %d", maxHistoryLimit)
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateBackend() error {
	switch c.Backend.Transport {
	case TransportHTTP:
		if c.Backend.URL == "" {
			return errors.New("backend.url must be set when backend.transport is http")
		}
		parsed, err := url.Parse(c.Backend.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL)
		}
	case TransportNATS:
		if c.Backend.NATSURL == "" {
			return errors.New("backend.nats_url must be set when backend.transport is nats")
		}
	default:
		return fmt.Errorf("backend.transport: unsupported value %q (want http or nats)", c.Backend.Transport)
	}
	return ensurePositiveMap(map[string]int{
		"backend.request_timeout": c.Backend.RequestTimeout,
		"backend.batch_timeout":   c.Backend.BatchTimeout,
	})
}

func (c *Config) validateVoice() error {
	checks := map[string]float64{
		"voice.stability":        c.Voice.Stability,
		"voice.similarity_boost": c.Voice.SimilarityBoost,
		"voice.style":            c.Voice.Style,
	}
	for key, value := range checks {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	if c.Voice.Speed <= 0 {
		return errors.New("voice.speed must be positive")
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	switch c.Orchestrator.Policy {
	case PolicySequential, PolicyParallel:
	default:
		return fmt.Errorf("orchestrator.policy: unsupported value %q (want sequential or parallel)", c.Orchestrator.Policy)
	}
	return ensurePositiveMap(map[string]int{
		"orchestrator.pause_poll_interval_ms": c.Orchestrator.PausePollIntervalMS,
		"orchestrator.credit_refresh_timeout": c.Orchestrator.CreditRefreshTimeout,
	})
}

func (c *Config) validateRecovery() error {
	return ensurePositiveMap(map[string]int{
		"recovery.interval_seconds": c.Recovery.IntervalSeconds,
		"recovery.debounce_ms":      c.Recovery.DebounceMS,
		"recovery.stale_hours":      c.Recovery.StaleHours,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
