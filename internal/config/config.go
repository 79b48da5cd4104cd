package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	OutputDir  string `toml:"output_dir"`
	SocketPath string `toml:"socket_path"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Backend describes how the remote TTS execution service is reached.
type Backend struct {
	Transport      string `toml:"transport"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	NATSURL        string `toml:"nats_url"`
	SubjectPrefix  string `toml:"subject_prefix"`
	RequestTimeout int    `toml:"request_timeout"`
	BatchTimeout   int    `toml:"batch_timeout"`
}

// Voice holds the session defaults applied to lines without their own voice.
type Voice struct {
	DefaultVoiceID   string  `toml:"default_voice_id"`
	DefaultVoiceName string  `toml:"default_voice_name"`
	ModelID          string  `toml:"model_id"`
	Stability        float64 `toml:"stability"`
	SimilarityBoost  float64 `toml:"similarity_boost"`
	Style            float64 `toml:"style"`
	UseSpeakerBoost  bool    `toml:"use_speaker_boost"`
	Speed            float64 `toml:"speed"`
}

// Orchestrator contains dispatch settings for processing runs.
type Orchestrator struct {
	Policy               string `toml:"policy"`
	Concurrency          int    `toml:"concurrency"`
	PausePollIntervalMS  int    `toml:"pause_poll_interval_ms"`
	RequestDelayMS       int    `toml:"request_delay_ms"`
	CreditRefreshTimeout int    `toml:"credit_refresh_timeout"`
}

// Recovery controls crash-recovery snapshot cadence.
type Recovery struct {
	IntervalSeconds int `toml:"interval_seconds"`
	DebounceMS      int `toml:"debounce_ms"`
	StaleHours      int `toml:"stale_hours"`
}

// History bounds the export history ledger.
type History struct {
	Limit int `toml:"limit"`
}

// Notifications contains configuration for run notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Desktop        bool   `toml:"desktop"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for voicequeue.
//
// Configuration sections by subsystem:
//   - Paths: state, log and output directories plus socket/API addresses
//   - Backend: transport and endpoint of the remote TTS service
//   - Voice: default voice and synthesis settings for new sessions
//   - Orchestrator: dispatch policy, concurrency and pacing
//   - Recovery: snapshot interval, debounce and staleness
//   - History: export ledger size
//   - Notifications: ntfy and desktop notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Voice         Voice         `toml:"voice"`
	Orchestrator  Orchestrator  `toml:"orchestrator"`
	Recovery      Recovery      `toml:"recovery"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voicequeue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voicequeue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The output directory is created on a best-effort basis; the session may
// point elsewhere before any run starts.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite file holding persisted daemon state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "voicequeue.db")
}

// LockPath returns the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "voicequeued.lock")
}

// LogPath returns the daemon log file, or "" when file logging is disabled.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "voicequeue.log")
}

// PIDPath returns the daemon PID file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "voicequeued.pid")
}

// RequestTimeout returns the per-line backend timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// BatchTimeout returns the timeout applied to a whole batch request.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Backend.BatchTimeout) * time.Second
}

// PausePollInterval returns how often a paused run re-checks its flags.
func (c *Config) PausePollInterval() time.Duration {
	return time.Duration(c.Orchestrator.PausePollIntervalMS) * time.Millisecond
}

// RequestDelay returns the pause inserted between sequential requests.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Orchestrator.RequestDelayMS) * time.Millisecond
}

// RecoveryInterval returns the periodic snapshot interval.
func (c *Config) RecoveryInterval() time.Duration {
	return time.Duration(c.Recovery.IntervalSeconds) * time.Second
}

// RecoveryDebounce returns the delay coalescing mutation-triggered snapshots.
func (c *Config) RecoveryDebounce() time.Duration {
	return time.Duration(c.Recovery.DebounceMS) * time.Millisecond
}

// RecoveryMaxAge returns the age after which a snapshot is no longer offered.
func (c *Config) RecoveryMaxAge() time.Duration {
	return time.Duration(c.Recovery.StaleHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
