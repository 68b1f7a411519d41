package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/stats"
)

const plainProgressEvery = 5 * time.Second

// plainPresenter writes one line per finished entry to stdout in verbose
// mode and periodic progress to stderr. Errors reach the user through the
// logger.
type plainPresenter struct {
	w          io.Writer
	errW       io.Writer
	stats      *stats.Collector
	op         string
	root       string
	verbose    bool
	noProgress bool

	tick         ticker
	lastProgress time.Time
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	p.lastProgress = time.Now()
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	if line := feedLine(ev, p.root, p.verbose); line != "" {
		fmt.Fprintln(p.w, line)
		return
	}
	if ev.Type != event.Pulse {
		return
	}
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	p.tick.pulse(p.stats, now)
	if p.noProgress || p.stats == nil || now.Sub(p.lastProgress) < plainProgressEvery {
		return
	}
	p.lastProgress = now
	fmt.Fprintln(p.errW, "progress: "+statusLine(p.op, p.stats.Snapshot(), p.stats.RollingSpeed(10), p.stats.ETA()))
}

func (p *plainPresenter) Summary() string {
	if p.stats == nil {
		return ""
	}
	return CompletionSummary(p.op, p.stats.Snapshot())
}

// feedLine renders the verbose per-entry line for ev, or "" when ev has
// none.
func feedLine(ev event.Event, root string, verbose bool) string {
	if !verbose {
		return ""
	}
	path := StripRoot(root, ev.Path)
	switch ev.Type {
	case event.FileCopied:
		return fmt.Sprintf("%s  %s", path, FormatBytes(ev.Size))
	case event.FileSkipped:
		return path + "  skipped"
	case event.EntryDeleted:
		return "delete: " + path
	case event.DirectoryCreated:
		return "mkdir: " + path
	}
	return ""
}
