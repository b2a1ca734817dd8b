// Package metrics exports snapshot health in the node_exporter textfile
// collector format.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/melih-ucgun/botsnap/internal/state"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "botsnap"

// ArchiveLister is satisfied by *snapshot.Manager.
type ArchiveLister interface {
	List() ([]snapshot.Archive, error)
}

// Exporter is a snapshot.Listener that rewrites the textfile after every
// operation. Each run is a separate process, so values are rebuilt from
// the journal and the archive directory rather than kept in memory.
type Exporter struct {
	path    string
	journal *state.Manager
	lister  ArchiveLister
}

func NewExporter(path string, journal *state.Manager, lister ArchiveLister) *Exporter {
	return &Exporter{path: path, journal: journal, lister: lister}
}

func (e *Exporter) Name() string { return "metrics" }

func (e *Exporter) Notify(ctx context.Context, ev snapshot.Event) error {
	if ev.Kind == snapshot.KindPrecondition {
		return nil
	}
	return e.Write()
}

// Write gathers the current values and writes the textfile.
func (e *Exporter) Write() error {
	reg, err := e.collect()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return err
	}
	// WriteToTextfile renames a temp file into place.
	if err := prometheus.WriteToTextfile(e.path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (e *Exporter) collect() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful operation.",
	}, []string{"op"})
	lastRunOK := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "1 if the most recent run of the operation succeeded, 0 otherwise.",
	}, []string{"op"})
	lastDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_duration_seconds",
		Help:      "Duration of the most recent run of the operation.",
	}, []string{"op"})
	failures := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "journal_failures",
		Help:      "Failed runs still present in the operation journal.",
	}, []string{"op"})
	warnings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_warnings",
		Help:      "Warnings reported by the most recent run of the operation.",
	}, []string{"op"})
	archives := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "archives",
		Help:      "Archives present in the archive directory.",
	}, []string{"tag"})
	archiveBytes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "archives_bytes",
		Help:      "Total size of the archives in the archive directory.",
	}, []string{"tag"})
	latestSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "latest_archive_size_bytes",
		Help:      "Size of the newest snapshot archive.",
	})

	reg.MustRegister(lastSuccess, lastRunOK, lastDuration, failures, warnings, archives, archiveBytes, latestSize)

	if e.journal != nil {
		seen := make(map[string]bool)
		succeeded := make(map[string]bool)
		// Entries are newest first.
		for _, entry := range e.journal.Entries() {
			if entry.DryRun {
				continue
			}
			if !seen[entry.Op] {
				seen[entry.Op] = true
				ok := 0.0
				if entry.Status == state.StatusSuccess {
					ok = 1
				}
				lastRunOK.WithLabelValues(entry.Op).Set(ok)
				lastDuration.WithLabelValues(entry.Op).Set(entry.Duration.Seconds())
				warnings.WithLabelValues(entry.Op).Set(float64(len(entry.Warnings)))
				failures.WithLabelValues(entry.Op).Add(0)
			}
			if entry.Status == state.StatusFailed {
				failures.WithLabelValues(entry.Op).Inc()
			} else if !succeeded[entry.Op] {
				succeeded[entry.Op] = true
				lastSuccess.WithLabelValues(entry.Op).Set(float64(entry.Timestamp.Add(entry.Duration).Unix()))
			}
		}
	}

	if e.lister != nil {
		list, err := e.lister.List()
		if err != nil {
			return nil, err
		}
		sizeSet := false
		for _, a := range list {
			archives.WithLabelValues(a.Tag).Inc()
			archiveBytes.WithLabelValues(a.Tag).Add(float64(a.Size))
			if !sizeSet && a.Tag == consts.TagSnapshot {
				latestSize.Set(float64(a.Size))
				sizeSet = true
			}
		}
	}

	return reg, nil
}
