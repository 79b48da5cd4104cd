// Package config loads, normalizes, and validates voicequeue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the VOICEQUEUE_API_KEY environment
// fallback. The Config type centralizes every knob the daemon and CLI need:
// where state lives, how the TTS backend is reached, and how runs are paced.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped concurrency, and clear validation errors.
package config
