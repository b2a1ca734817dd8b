package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/pterm/pterm"
)

// PtermUI is an implementation of core.UI using pterm.
// Messages go to writer (stderr by default) so that stdout carries only
// data: tables and Printf/Println output.
type PtermUI struct {
	writer io.Writer
	out    io.Writer
}

// NewPtermUI creates a new PtermUI instance.
func NewPtermUI() *PtermUI {
	return &PtermUI{
		writer: os.Stderr,
		out:    os.Stdout,
	}
}

// Ensure PtermUI implements core.UI
var _ core.UI = (*PtermUI)(nil)

func (p *PtermUI) Section(title string) {
	pterm.DefaultSection.WithWriter(p.writer).Println(title)
}

func (p *PtermUI) Title(title string) {
	pterm.DefaultHeader.WithFullWidth().WithWriter(p.writer).Println(title)
}

func (p *PtermUI) Step(n, total int, msg string) {
	marker := pterm.FgCyan.Sprintf("[%d/%d]", n, total)
	pterm.DefaultBasicText.WithWriter(p.writer).Println(marker + " " + msg)
}

func (p *PtermUI) Success(msg string) {
	pterm.Success.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Info(msg string) {
	pterm.Info.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Debug(msg string) {
	pterm.Debug.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Warning(msg string) {
	pterm.Warning.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Error(msg string) {
	pterm.Error.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *PtermUI) Println(args ...interface{}) {
	fmt.Fprintln(p.out, args...)
}

func (p *PtermUI) Table(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(rows)).WithWriter(p.out).Render()
}

// WithWriter sends both messages and data to w.
func (p *PtermUI) WithWriter(w io.Writer) core.UI {
	return &PtermUI{
		writer: w,
		out:    w,
	}
}
