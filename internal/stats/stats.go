// Package stats derives progress counters for a processing run from the line
// queue. Results are recomputed on demand and never cached.
package stats

import (
	"time"

	"voicequeue/internal/lines"
)

// Stats is the aggregate progress view of the queue.
type Stats struct {
	Total               int      `json:"total"`
	Completed           int      `json:"completed"`
	Failed              int      `json:"failed"`
	Pending             int      `json:"pending"`
	Processing          int      `json:"processing"`
	CharactersProcessed int      `json:"characters_processed"`
	ElapsedSeconds      float64  `json:"elapsed_seconds"`
	ETASeconds          *float64 `json:"eta_seconds,omitempty"`
	ProgressPercent     float64  `json:"progress_percent"`
}

// Window bounds the wall-clock span used for elapsed time. A zero Start means
// no run has happened; a zero End means the run is still active.
type Window struct {
	Start time.Time
	End   time.Time
}

// Compute counts lines by status and derives elapsed time and ETA.
func Compute(items []lines.Line, window Window, now time.Time) Stats {
	var s Stats
	s.Total = len(items)
	for _, line := range items {
		switch line.Status {
		case lines.StatusDone:
			s.Completed++
			s.CharactersProcessed += lines.CharCount(line.Text)
		case lines.StatusError:
			s.Failed++
		case lines.StatusPending:
			s.Pending++
		case lines.StatusProcessing:
			s.Processing++
		}
	}

	if !window.Start.IsZero() {
		end := window.End
		if end.IsZero() {
			end = now
		}
		if elapsed := end.Sub(window.Start); elapsed > 0 {
			s.ElapsedSeconds = elapsed.Seconds()
		}
	}

	if s.Completed > 0 {
		eta := s.ElapsedSeconds / float64(s.Completed) * float64(s.Pending)
		s.ETASeconds = &eta
	}
	if s.Total > 0 {
		s.ProgressPercent = float64(s.Completed+s.Failed) / float64(s.Total) * 100
	}
	return s
}

// ETA returns the estimate as a duration and whether one is available.
func (s Stats) ETA() (time.Duration, bool) {
	if s.ETASeconds == nil {
		return 0, false
	}
	return time.Duration(*s.ETASeconds * float64(time.Second)), true
}
