package ui

import (
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/stats"
)

const (
	ansiClearLine  = "\r\033[2K"
	liveMinRedraw  = 100 * time.Millisecond
	sparklineWidth = 12
)

// livePresenter redraws a single status line on the terminal at every
// pulse. Verbose feed lines scroll above it.
type livePresenter struct {
	w       io.Writer // the terminal
	out     io.Writer // feed lines
	stats   *stats.Collector
	op      string
	root    string
	width   int
	verbose bool

	tick     ticker
	drawn    bool
	lastDraw time.Time
}

func (p *livePresenter) Run(events <-chan event.Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	p.clear()
	return nil
}

func (p *livePresenter) handleEvent(ev event.Event) {
	if line := feedLine(ev, p.root, p.verbose); line != "" {
		p.clear()
		fmt.Fprintln(p.out, line)
		return
	}
	if ev.Type != event.Pulse || p.stats == nil {
		return
	}
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	p.tick.pulse(p.stats, now)
	if now.Sub(p.lastDraw) < liveMinRedraw {
		return
	}
	p.lastDraw = now
	p.draw()
}

func (p *livePresenter) draw() {
	line := statusLine(p.op, p.stats.Snapshot(), p.stats.RollingSpeed(10), p.stats.ETA())
	if p.op != "delete" && p.op != "scan" {
		line += "  " + sparkline(p.stats.History(), sparklineWidth)
	}
	fmt.Fprint(p.w, ansiClearLine+truncate(line, p.width-1))
	p.drawn = true
}

func (p *livePresenter) clear() {
	if p.drawn {
		fmt.Fprint(p.w, ansiClearLine)
		p.drawn = false
	}
}

func (p *livePresenter) Summary() string {
	if p.stats == nil {
		return ""
	}
	return CompletionSummary(p.op, p.stats.Snapshot())
}

// statusLine renders the progress counters relevant to op.
func statusLine(op string, s stats.Snapshot, speed float64, eta time.Duration) string {
	switch op {
	case "delete":
		return fmt.Sprintf("delete  %s removed  %s kept  %s  errors %d",
			FormatCount(s.FilesDeleted+s.SymlinksDeleted+s.DirsDeleted),
			FormatCount(s.EntriesKept),
			FormatBytes(s.BytesDeleted),
			s.Errors)
	case "scan":
		return fmt.Sprintf("scan  %s dirs  %s files  %s  errors %d",
			FormatCount(s.DirsTraversed),
			FormatCount(s.FilesDiscovered+s.SymlinksDiscovered),
			FormatBytes(s.BytesDiscovered),
			s.Errors)
	}

	done := s.FilesCopied + s.SymlinksCopied + s.FilesSkipped
	total := s.FilesDiscovered + s.SymlinksDiscovered
	pct := 0.0
	if s.BytesDiscovered > 0 {
		pct = float64(s.BytesCopied) / float64(s.BytesDiscovered) * 100
	}
	return fmt.Sprintf("%s  %s/%s entries  %s/%s  %.0f%%  %s  eta %s  errors %d",
		op,
		FormatCount(done), FormatCount(total),
		FormatBytes(s.BytesCopied), FormatBytes(s.BytesDiscovered),
		math.Min(pct, 100),
		FormatRate(speed),
		FormatETA(eta),
		s.Errors)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the newest width samples scaled to their maximum,
// right-aligned.
func sparkline(samples []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	peak := 0.0
	for _, v := range samples {
		peak = max(peak, v)
	}

	out := make([]rune, width)
	pad := width - len(samples)
	for i := range out {
		out[i] = sparkBlocks[0]
		if i < pad || peak <= 0 {
			continue
		}
		v := samples[i-pad]
		if v <= 0 {
			continue
		}
		idx := int(math.Round(v / peak * float64(len(sparkBlocks)-1)))
		out[i] = sparkBlocks[min(idx, len(sparkBlocks)-1)]
	}
	return string(out)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
