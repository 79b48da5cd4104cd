package config

const (
	defaultDataDir              = "~/.local/share/voicequeue"
	defaultLogDir               = "~/.local/share/voicequeue/logs"
	defaultOutputDir            = "~/voicequeue"
	defaultAPIBind              = "127.0.0.1:7491"
	defaultSocketName           = "voicequeue.sock"
	defaultTransport            = TransportHTTP
	defaultBackendURL           = "http://127.0.0.1:8765"
	defaultNATSURL              = "nats://127.0.0.1:4222"
	defaultSubjectPrefix        = "tts"
	defaultRequestTimeout       = 120
	defaultBatchTimeout         = 1800
	defaultModelID              = "eleven_multilingual_v2"
	defaultPolicy               = PolicySequential
	defaultConcurrency          = 5
	defaultPausePollIntervalMS  = 100
	defaultCreditRefreshTimeout = 10
	defaultRecoveryInterval     = 30
	defaultRecoveryDebounceMS   = 1000
	defaultRecoveryStaleHours   = 24
	defaultHistoryLimit         = 100
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	minConcurrency              = 1
	maxConcurrency              = 50
	maxHistoryLimit             = 10000
)

// Backend transports.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// Dispatch policies.
const (
	PolicySequential = "sequential"
	PolicyParallel   = "parallel"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Backend: Backend{
			Transport:      defaultTransport,
			URL:            defaultBackendURL,
			NATSURL:        defaultNATSURL,
			SubjectPrefix:  defaultSubjectPrefix,
			RequestTimeout: defaultRequestTimeout,
			BatchTimeout:   defaultBatchTimeout,
		},
		Voice: Voice{
			ModelID:         defaultModelID,
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
		Orchestrator: Orchestrator{
			Policy:               defaultPolicy,
			Concurrency:          defaultConcurrency,
			PausePollIntervalMS:  defaultPausePollIntervalMS,
			CreditRefreshTimeout: defaultCreditRefreshTimeout,
		},
		Recovery: Recovery{
			IntervalSeconds: defaultRecoveryInterval,
			DebounceMS:      defaultRecoveryDebounceMS,
			StaleHours:      defaultRecoveryStaleHours,
		},
		History: History{
			Limit: defaultHistoryLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStarted:     true,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// ClampConcurrency bounds a requested worker count to the supported range.
func ClampConcurrency(value int) int {
	if value < minConcurrency {
		return minConcurrency
	}
	if value > maxConcurrency {
		return maxConcurrency
	}
	return value
}
