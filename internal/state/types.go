package state

import "time"

// Entry is one recorded operation.
type Entry struct {
	ID        string        `json:"id"`
	Op        string        `json:"op"`
	Timestamp time.Time     `json:"timestamp"`
	Status    string        `json:"status"` // success, failed
	Kind      string        `json:"kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Archive   string        `json:"archive,omitempty"`
	Safety    string        `json:"safety_archive,omitempty"`
	Size      int64         `json:"size,omitempty"`
	Pruned    []string      `json:"pruned,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Duration  time.Duration `json:"duration"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Journal is the persisted file content.
type Journal struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

func NewJournal() *Journal {
	return &Journal{Version: "1.0"}
}
