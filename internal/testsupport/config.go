package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voicequeue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The output directory is created so runs can start without further setup.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.SocketPath = filepath.Join(base, "data", "voicequeue.sock")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Voice.DefaultVoiceID = "voice-default"
	cfgVal.Voice.DefaultVoiceName = "Default"
	cfgVal.Orchestrator.PausePollIntervalMS = 5
	cfgVal.Recovery.DebounceMS = 10
	cfgVal.Notifications.Desktop = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{builder.cfg.Paths.DataDir, builder.cfg.Paths.LogDir, builder.cfg.Paths.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithBackendURL points the HTTP transport at url.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Transport = config.TransportHTTP
		b.cfg.Backend.URL = url
	}
}

// WithNATS switches the backend to the NATS transport.
func WithNATS(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Transport = config.TransportNATS
		b.cfg.Backend.NATSURL = url
	}
}

// WithoutDefaultVoice clears the default voice so lines must carry their own.
func WithoutDefaultVoice() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Voice.DefaultVoiceID = ""
		b.cfg.Voice.DefaultVoiceName = ""
	}
}

// WithoutOutputDir leaves the session without an output folder.
func WithoutOutputDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.OutputDir = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
