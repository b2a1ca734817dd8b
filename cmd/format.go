package cmd

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/melih-ucgun/botsnap/internal/state"
	"github.com/pterm/pterm"
)

const dateLayout = "2006-01-02 15:04:05"

func humanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func humanAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func statusStyle(status string) *pterm.Style {
	if status == state.StatusFailed {
		return pterm.NewStyle(pterm.FgRed)
	}
	return pterm.NewStyle(pterm.FgGreen)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
