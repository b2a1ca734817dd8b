package state

import (
	"context"

	"github.com/google/uuid"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
)

// Recorder is a snapshot.Listener writing each operation to the journal.
type Recorder struct {
	mgr *Manager
}

func NewRecorder(mgr *Manager) *Recorder {
	return &Recorder{mgr: mgr}
}

func (r *Recorder) Name() string { return "journal" }

func (r *Recorder) Notify(ctx context.Context, ev snapshot.Event) error {
	// Rejected before anything was touched; recording it would be the
	// only write of the run.
	if ev.Kind == snapshot.KindPrecondition {
		return nil
	}
	return r.mgr.AddEntry(EntryFromEvent(ev))
}

// EntryFromEvent converts a finished operation to a journal entry.
func EntryFromEvent(ev snapshot.Event) Entry {
	e := Entry{
		ID:     uuid.NewString(),
		Op:     ev.Op,
		Status: StatusSuccess,
	}
	if ev.Err != nil {
		e.Status = StatusFailed
		e.Error = ev.Err.Error()
		e.Kind = ev.Kind.String()
	}
	if res := ev.Result; res != nil {
		e.Timestamp = res.Started
		e.Duration = res.Duration
		e.DryRun = res.DryRun
		e.Warnings = append(e.Warnings, res.Warnings...)
		if res.Archive != nil {
			e.Archive = res.Archive.Name
			e.Size = res.Archive.Size
		}
		if res.SafetyArchive != nil {
			e.Safety = res.SafetyArchive.Name
		}
		for _, p := range res.Pruned {
			e.Pruned = append(e.Pruned, p.Name)
		}
	}
	return e
}
