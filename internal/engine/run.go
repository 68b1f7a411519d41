package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bamsammich/parfs/internal/compare"
	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/filter"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/stats"
	"github.com/bamsammich/parfs/internal/task"
)

// Op selects the operation Run performs.
type Op int

const (
	OpCopy Op = iota + 1
	OpDelete
	OpInspect
)

func (o Op) String() string {
	switch o {
	case OpCopy:
		return "copy"
	case OpDelete:
		return "delete"
	case OpInspect:
		return "inspect"
	default:
		return "unknown"
	}
}

// waitSlice is how long Run blocks on the root task between checks.
const waitSlice = 200 * time.Millisecond

// Config describes one operation.
type Config struct {
	FS          fsys.FileSystem
	Comparer    compare.Comparer // copy only; nil uses compare.Default
	Filter      *filter.Chain    // copy/inspect: entries to act on; delete: leaves to delete
	Stats       *stats.Collector // nil creates one; pass one to read live progress
	Bus         *event.Bus
	Logger      *slog.Logger
	Source      string
	Destination string // copy only
	Op          Op
	Options     CopyOptions
	Workers     int           // <= 0 uses DefaultWorkers()
	TopK        int           // inspect only
	Pulse       time.Duration // <= 0 uses stats.DefaultPulse
	DryRun      bool
}

// Result is the outcome of an operation.
type Result struct {
	Inspection *Inspection
	Err        error
	Errors     []stats.EntryError
	Stats      stats.Snapshot
}

// Run executes cfg, blocking until the whole tree is done. A missing root
// fails with ErrRootNotFound before any work starts. Per-entry failures do
// not stop the operation; they are collected and reported as ErrPartial.
func Run(ctx context.Context, cfg Config) Result {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	root, err := cfg.FS.GetEntry(cfg.Source)
	if err != nil {
		if fsys.IsNotFound(err) {
			return Result{Err: fmt.Errorf("%w: %s", ErrRootNotFound, cfg.Source)}
		}
		return Result{Err: fmt.Errorf("source: %w", err)}
	}

	factory := task.NewFactory(ctx, workers)
	defer factory.Close()

	e := New(Options{
		FS:      cfg.FS,
		Factory: factory,
		Stats:   collector,
		Bus:     cfg.Bus,
		Logger:  logger,
		Filter:  cfg.Filter,
		DryRun:  cfg.DryRun,
	})

	logger.Debug("operation starting",
		"op", cfg.Op, "source", cfg.Source, "destination", cfg.Destination,
		"workers", workers, "options", cfg.Options, "dry_run", cfg.DryRun)

	collector.Start()
	monitor := stats.StartMonitor(cfg.Pulse, func() {
		cfg.Bus.Emit(event.Event{Type: event.Pulse})
	})

	var rootTask *task.Task
	switch cfg.Op {
	case OpCopy:
		if root.IsDirectory() {
			rootTask = e.CopyDirectory(root, cfg.Destination, cfg.Options, cfg.Comparer, false)
		} else {
			dst := cfg.Destination
			// Copying a single entry onto a directory places it inside.
			if d, err := cfg.FS.GetEntry(dst); err == nil && d.IsDirectory() {
				dst = filepath.Join(dst, root.Name)
			}
			rootTask = e.CopyEntry(root, dst, cfg.Options, cfg.Comparer)
		}
	case OpDelete:
		rootTask = e.DeleteEntry(root, cfg.Filter)
	case OpInspect:
		rootTask = e.Inspect(root, cfg.TopK)
	default:
		monitor.Stop()
		collector.Stop()
		return Result{Err: fmt.Errorf("unknown operation %d", cfg.Op)}
	}

	cancelLogged := false
	for !rootTask.Wait(waitSlice) {
		if ctx.Err() != nil && !cancelLogged {
			logger.Info("cancel requested, waiting for in-flight work")
			cancelLogged = true
		}
	}

	monitor.Stop()
	collector.Stop()
	// Final pulse so presenters render the finished counters.
	cfg.Bus.Emit(event.Event{Type: event.Pulse})

	res := Result{
		Stats:  collector.Snapshot(),
		Errors: collector.Errors(),
	}
	if insp, ok := rootTask.Value().(*Inspection); ok {
		res.Inspection = insp
	}

	switch {
	case rootTask.Status() == task.Canceled:
		res.Err = rootTask.Err()
	case rootTask.Status() == task.Faulted:
		res.Err = fmt.Errorf("%w: %w", ErrPartial, rootTask.Err())
	case len(res.Errors) > 0:
		res.Err = aggregate(res.Errors)
	}

	logger.Debug("operation finished", "op", cfg.Op, "stats", res.Stats.String(), "error", res.Err)
	return res
}

// aggregate reports the first error and how many followed it.
func aggregate(errs []stats.EntryError) error {
	first := errs[0]
	if len(errs) == 1 {
		return fmt.Errorf("%w: %w", ErrPartial, first)
	}
	return fmt.Errorf("%w: %w (and %d more errors)", ErrPartial, first, len(errs)-1)
}

// IsFatal reports whether err aborted the operation before it could run.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrPartial) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
