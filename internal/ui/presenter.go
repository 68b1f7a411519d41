package ui

import (
	"io"
	"time"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/stats"
)

// Presenter consumes engine events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	Op        string // copy, mirror, delete or scan
	Root      string // stripped from displayed paths
	Width     int    // terminal columns for the live line
	IsTTY     bool
	Quiet     bool
	Verbose   bool
	// NoProgress disables the periodic progress output.
	NoProgress bool
}

// tickEvery is how often presenters sample the rolling rate buffers.
const tickEvery = time.Second

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:          cfg.Writer,
			errW:       cfg.ErrWriter,
			stats:      cfg.Stats,
			op:         cfg.Op,
			root:       cfg.Root,
			verbose:    cfg.Verbose,
			noProgress: cfg.NoProgress,
		}
	}
	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}
	return &livePresenter{
		w:       cfg.ErrWriter, // the live line renders to stderr (the TTY)
		out:     cfg.Writer,
		stats:   cfg.Stats,
		op:      cfg.Op,
		root:    cfg.Root,
		width:   width,
		verbose: cfg.Verbose,
	}
}

// ticker calls Collector.Tick at most once per tickEvery, driven by pulses.
type ticker struct {
	last time.Time
}

func (t *ticker) pulse(c *stats.Collector, now time.Time) bool {
	if c == nil || now.Sub(t.last) < tickEvery {
		return false
	}
	t.last = now
	c.Tick()
	return true
}
