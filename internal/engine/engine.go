// Package engine runs traverse, copy, mirror, delete and inspect operations
// over a directory tree as a graph of tasks on a bounded worker pool.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/filter"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/stats"
	"github.com/bamsammich/parfs/internal/task"
)

var (
	// ErrRootNotFound is the fatal error for a missing operation root.
	ErrRootNotFound = errors.New("root not found")
	// ErrPartial marks an operation that finished with recorded errors.
	ErrPartial = errors.New("completed with errors")
)

// DefaultWorkers is twice the CPU count, capped at 32.
func DefaultWorkers() int {
	return min(runtime.NumCPU()*2, 32)
}

// Options wires an Engine to its collaborators.
type Options struct {
	FS      fsys.FileSystem
	Factory *task.Factory
	Stats   *stats.Collector // nil creates one
	Bus     *event.Bus       // nil discards events
	Logger  *slog.Logger     // nil uses slog.Default()
	// Filter restricts which entries copy and inspect act on. Delete takes
	// its own filter.
	Filter *filter.Chain
	// DryRun reports what would change without touching the filesystem.
	DryRun bool
}

// Engine runs operations for one logical job. It holds no global state;
// every operation shares the engine's statistics and event bus.
type Engine struct {
	fs      fsys.FileSystem
	factory *task.Factory
	stats   *stats.Collector
	bus     *event.Bus
	logger  *slog.Logger
	filter  *filter.Chain
	dryRun  bool
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Stats == nil {
		opts.Stats = stats.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		fs:      opts.FS,
		factory: opts.Factory,
		stats:   opts.Stats,
		bus:     opts.Bus,
		logger:  opts.Logger,
		filter:  opts.Filter,
		dryRun:  opts.DryRun,
	}
}

// Stats returns the live collector.
func (e *Engine) Stats() *stats.Collector { return e.stats }

func (e *Engine) emit(ev event.Event) {
	e.bus.Emit(ev)
}

// fail applies the error policy to one unit of work: cancellation is quiet,
// a vanished entry is benign, anything else is recorded and reported.
func (e *Engine) fail(op, path string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case fsys.IsNotFound(err):
		e.stats.AddEntriesVanished(1)
		e.logger.Debug("entry vanished", "op", op, "path", path)
		return
	}
	e.stats.RecordError(op, path, err)
	e.logger.Warn("operation failed", "op", op, "path", path, "error", err)
	e.emit(event.Event{Type: event.Error, Path: path, Error: err})
}

// countDiscovered tallies an enumerated batch.
func (e *Engine) countDiscovered(entries []fsys.Entry) {
	var dirs, files, links, bytes int64
	for _, en := range entries {
		switch {
		case en.IsDirectory():
			dirs++
		case en.IsSymlink():
			links++
		default:
			files++
			bytes += en.Size
		}
	}
	e.stats.AddDirsDiscovered(dirs)
	e.stats.AddFilesDiscovered(files)
	e.stats.AddSymlinksDiscovered(links)
	e.stats.AddBytesDiscovered(bytes)
}
