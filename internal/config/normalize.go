package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeVoice()
	c.normalizeOrchestrator()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.Transport = strings.ToLower(strings.TrimSpace(c.Backend.Transport))
	if c.Backend.Transport == "" {
		c.Backend.Transport = defaultTransport
	}
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	c.Backend.NATSURL = strings.TrimSpace(c.Backend.NATSURL)
	c.Backend.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Backend.SubjectPrefix), ".")
	if c.Backend.SubjectPrefix == "" {
		c.Backend.SubjectPrefix = defaultSubjectPrefix
	}
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv("VOICEQUEUE_API_KEY"); ok {
			c.Backend.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.DefaultVoiceID = strings.TrimSpace(c.Voice.DefaultVoiceID)
	c.Voice.DefaultVoiceName = strings.TrimSpace(c.Voice.DefaultVoiceName)
	c.Voice.ModelID = strings.TrimSpace(c.Voice.ModelID)
	if c.Voice.ModelID == "" {
		c.Voice.ModelID = defaultModelID
	}
	if c.Voice.DefaultVoiceName == "" {
		c.Voice.DefaultVoiceName = c.Voice.DefaultVoiceID
	}
}

func (c *Config) normalizeOrchestrator() {
	c.Orchestrator.Policy = strings.ToLower(strings.TrimSpace(c.Orchestrator.Policy))
	if c.Orchestrator.Policy == "" {
		c.Orchestrator.Policy = defaultPolicy
	}
	c.Orchestrator.Concurrency = ClampConcurrency(c.Orchestrator.Concurrency)
	if c.Orchestrator.RequestDelayMS < 0 {
		c.Orchestrator.RequestDelayMS = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
