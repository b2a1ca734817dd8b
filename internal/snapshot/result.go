package snapshot

import (
	"fmt"
	"time"
)

const (
	OpCreate  = "create"
	OpRestore = "restore"
	OpPrune   = "prune"
)

// Result reports what an operation did besides its error. Warnings hold the
// tolerated partial failures.
type Result struct {
	Op            string        `json:"op"`
	Archive       *Archive      `json:"archive,omitempty"`
	SafetyArchive *Archive      `json:"safety_archive,omitempty"`
	Restored      []string      `json:"restored,omitempty"`
	Missing       []string      `json:"missing,omitempty"`
	Pruned        []Archive     `json:"pruned,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	DryRun        bool          `json:"dry_run,omitempty"`
	Started       time.Time     `json:"started"`
	Duration      time.Duration `json:"duration"`
}

func (r *Result) warn(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	return msg
}
