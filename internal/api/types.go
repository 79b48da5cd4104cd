package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Line describes a queued text line in a transport-friendly format.
type Line struct {
	ID               string  `json:"id"`
	Index            int     `json:"index"`
	Text             string  `json:"text"`
	OriginalText     string  `json:"originalText,omitempty"`
	VoiceID          string  `json:"voiceId,omitempty"`
	VoiceName        string  `json:"voiceName,omitempty"`
	Status           string  `json:"status"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	OutputPath       string  `json:"outputPath,omitempty"`
	AudioDuration    float64 `json:"audioDuration,omitempty"`
	RetryCount       int     `json:"retryCount"`
	SourceFile       string  `json:"sourceFile,omitempty"`
	StartTime        float64 `json:"startTime,omitempty"`
	EndTime          float64 `json:"endTime,omitempty"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
	ModelID          string  `json:"modelId,omitempty"`
	Selected         bool    `json:"selected,omitempty"`
}

// LineListResponse wraps the queue for API responses.
type LineListResponse struct {
	Lines []Line `json:"lines"`
}

// Stats mirrors run progress aggregates.
type Stats struct {
	Total               int      `json:"total"`
	Completed           int      `json:"completed"`
	Failed              int      `json:"failed"`
	Pending             int      `json:"pending"`
	Processing          int      `json:"processing"`
	CharactersProcessed int      `json:"charactersProcessed"`
	ElapsedSeconds      float64  `json:"elapsedSeconds"`
	ETASeconds          *float64 `json:"etaSeconds,omitempty"`
	ProgressPercent     float64  `json:"progressPercent"`
}

// RunStatus summarizes orchestrator state.
type RunStatus struct {
	State       string `json:"state"`
	Policy      string `json:"policy,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	RunID       string `json:"runId,omitempty"`
	StartedAt   string `json:"startedAt,omitempty"`
	FinishedAt  string `json:"finishedAt,omitempty"`
	Credits     *int   `json:"credits,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// HistoryEntry is one exported file.
type HistoryEntry struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	OutputPath    string `json:"outputPath"`
	LineIndex     int    `json:"lineIndex"`
	LineText      string `json:"lineText"`
	VoiceName     string `json:"voiceName"`
	DurationMS    int64  `json:"durationMs"`
	SessionFolder string `json:"sessionFolder"`
}

// HistoryResponse wraps the export ledger, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// Session carries the settings applied to new runs.
type Session struct {
	OutputFolder     string        `json:"outputFolder"`
	DefaultVoiceID   string        `json:"defaultVoiceId,omitempty"`
	DefaultVoiceName string        `json:"defaultVoiceName,omitempty"`
	ModelID          string        `json:"modelId,omitempty"`
	Voice            VoiceSettings `json:"voiceSettings"`
}

// VoiceSettings are the synthesis parameters sent with every request.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarityBoost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"useSpeakerBoost"`
	Speed           float64 `json:"speed"`
}

// RecoveryOffer describes a restorable snapshot.
type RecoveryOffer struct {
	Available        bool   `json:"available"`
	Timestamp        string `json:"timestamp,omitempty"`
	OutputFolder     string `json:"outputFolder,omitempty"`
	DefaultVoiceName string `json:"defaultVoiceName,omitempty"`
	Lines            int    `json:"lines"`
	Done             int    `json:"done"`
	Remaining        int    `json:"remaining"`
}

// CheckResult mirrors a readiness check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	DatabasePath string        `json:"databasePath"`
	LockFilePath string        `json:"lockFilePath"`
	SocketPath   string        `json:"socketPath"`
	Transport    string        `json:"transport"`
	Run          RunStatus     `json:"run"`
	Stats        Stats         `json:"stats"`
	Session      Session       `json:"session"`
	Recovery     RecoveryOffer `json:"recovery"`
	Checks       []CheckResult `json:"checks"`
}
