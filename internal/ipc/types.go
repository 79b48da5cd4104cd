package ipc

import "voicequeue/internal/api"

// Wire DTOs shared with the HTTP API.
type (
	Line          = api.Line
	Stats         = api.Stats
	RunStatus     = api.RunStatus
	HistoryEntry  = api.HistoryEntry
	Session       = api.Session
	VoiceSettings = api.VoiceSettings
	RecoveryOffer = api.RecoveryOffer
	DaemonStatus  = api.DaemonStatus
)

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps the daemon status payload.
type StatusResponse struct {
	Status DaemonStatus `json:"status"`
}

// LinesAddRequest splits Text into lines and appends them.
type LinesAddRequest struct {
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	VoiceID    string `json:"voice_id"`
	VoiceName  string `json:"voice_name"`
}

// LinesAddResponse lists the lines created.
type LinesAddResponse struct {
	Lines []Line `json:"lines"`
}

// LinesListRequest filters the listing by status names.
type LinesListRequest struct {
	Statuses []string `json:"statuses"`
}

// LinesListResponse contains the queue in index order.
type LinesListResponse struct {
	Lines []Line `json:"lines"`
}

// LineUpdateRequest edits a single line. Nil fields are left untouched.
type LineUpdateRequest struct {
	ID        string  `json:"id"`
	Text      *string `json:"text,omitempty"`
	VoiceID   *string `json:"voice_id,omitempty"`
	VoiceName *string `json:"voice_name,omitempty"`
}

// LineUpdateResponse returns the edited line.
type LineUpdateResponse struct {
	Line Line `json:"line"`
}

// LinesRemoveRequest deletes lines by id.
type LinesRemoveRequest struct {
	IDs []string `json:"ids"`
}

// LinesRemoveResponse lists the ids actually removed.
type LinesRemoveResponse struct {
	Removed []string `json:"removed"`
}

// LineMoveRequest moves a line between zero-based positions.
type LineMoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// LineMoveResponse returns the reordered queue.
type LineMoveResponse struct {
	Lines []Line `json:"lines"`
}

// LinesClearRequest empties the queue.
type LinesClearRequest struct{}

// LinesClearResponse reports how many lines were removed.
type LinesClearResponse struct {
	Removed int `json:"removed"`
}

// LinesSelectRequest replaces the selection.
type LinesSelectRequest struct {
	IDs []string `json:"ids"`
}

// LinesSelectResponse lists the ids now selected.
type LinesSelectResponse struct {
	Selected []string `json:"selected"`
}

// LinesRetryRequest resets failed lines. Empty means all failed lines.
type LinesRetryRequest struct {
	IDs []string `json:"ids"`
}

// LinesRetryResponse lists the ids reset to pending.
type LinesRetryResponse struct {
	Retried []string `json:"retried"`
}

// SessionGetRequest fetches session settings.
type SessionGetRequest struct{}

// SessionUpdateRequest changes session settings. Nil fields are left untouched.
type SessionUpdateRequest struct {
	OutputFolder     *string        `json:"output_folder,omitempty"`
	DefaultVoiceID   *string        `json:"default_voice_id,omitempty"`
	DefaultVoiceName *string        `json:"default_voice_name,omitempty"`
	ModelID          *string        `json:"model_id,omitempty"`
	Voice            *VoiceSettings `json:"voice_settings,omitempty"`
}

// SessionResponse carries session settings.
type SessionResponse struct {
	Session Session `json:"session"`
}

// RunStartRequest begins a run. Zero values use configured defaults.
type RunStartRequest struct {
	Policy      string `json:"policy"`
	Concurrency int    `json:"concurrency"`
}

// RunControlRequest pauses, resumes or stops the active run.
type RunControlRequest struct{}

// RunResponse reports orchestrator state after a run command.
type RunResponse struct {
	Run RunStatus `json:"run"`
}

// StatsRequest fetches run progress.
type StatsRequest struct{}

// StatsResponse carries run progress.
type StatsResponse struct {
	Stats Stats `json:"stats"`
}

// HistoryRequest fetches the export ledger.
type HistoryRequest struct{}

// HistoryResponse lists exports, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistoryClearRequest empties the export ledger.
type HistoryClearRequest struct{}

// HistoryClearResponse reports how many entries were removed.
type HistoryClearResponse struct {
	Removed int `json:"removed"`
}

// RecoveryRequest is shared by the recovery show, restore and discard calls.
type RecoveryRequest struct{}

// RecoveryResponse describes the snapshot acted upon.
type RecoveryResponse struct {
	Offer RecoveryOffer `json:"offer"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Match      string `json:"match"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath         string `json:"db_path"`
	Exists         bool   `json:"exists"`
	Readable       bool   `json:"readable"`
	SchemaVersion  int    `json:"schema_version"`
	IntegrityCheck bool   `json:"integrity_check"`
	Records        int    `json:"records"`
	Error          string `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
