package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/parfs/internal/engine"
	"github.com/bamsammich/parfs/internal/event"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/stats"
	"github.com/bamsammich/parfs/internal/ui"
)

// job is one fully configured CLI operation.
type job struct {
	cfg     engine.Config
	fs      *fsys.FS
	display string // presenter verb: copy, mirror, delete or scan
	root    string // stripped from displayed paths
}

// execute runs j with a presenter alongside the engine and maps the result
// to an exit code: 0 success, 1 partial or canceled, 2 fatal.
func (g *globalOpts) execute(cmd *cobra.Command, j job) (engine.Result, error) {
	logger, closeLog, err := g.setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return engine.Result{}, err
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "close log: %v\n", err)
		}
	}()

	if g.dryRun {
		logger.Info("dry run mode")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	bus := event.NewBus()
	if g.logFile != "" {
		bus.Subscribe(ui.EventLogger(logger), ui.LoggedEvents...)
	}

	events := make(chan event.Event, 1024)
	unsubscribe := subscribePresenter(bus, events, g.verbose)

	isTTY, width := ui.Terminal(os.Stderr.Fd())
	presenter := ui.NewPresenter(ui.Config{
		Writer:     cmd.OutOrStdout(),
		ErrWriter:  cmd.ErrOrStderr(),
		Stats:      collector,
		Op:         j.display,
		Root:       j.root,
		Width:      width,
		IsTTY:      isTTY,
		Quiet:      g.quiet,
		Verbose:    g.verbose,
		NoProgress: g.noProgress,
	})

	j.cfg.FS = j.fs
	j.cfg.Stats = collector
	j.cfg.Bus = bus
	j.cfg.Logger = logger
	j.cfg.Workers = g.workers
	j.cfg.DryRun = g.dryRun

	var result engine.Result
	var eg errgroup.Group
	eg.Go(func() error {
		return presenter.Run(events)
	})
	eg.Go(func() error {
		defer close(events)
		defer unsubscribe()
		result = engine.Run(ctx, j.cfg)
		j.fs.CleanupTemps()
		return nil
	})
	if err := eg.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", err)
	}
	stop()

	if !g.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), summary)
		}
	}

	switch {
	case result.Err == nil:
		return result, nil
	case engine.IsFatal(result.Err):
		logger.Error(j.display+" failed", "error", result.Err)
		return result, &exitError{code: 2}
	case errors.Is(result.Err, context.Canceled):
		logger.Warn(j.display+" canceled", "processed", result.Stats.Processed())
		return result, &exitError{code: 1}
	default:
		logger.Error(j.display+" finished with errors", "error", result.Err, "errors", len(result.Errors))
		return result, &exitError{code: 1}
	}
}

// feedTypes are the events a verbose presenter prints one line for.
var feedTypes = []event.Type{
	event.FileCopied, event.FileSkipped, event.EntryDeleted, event.DirectoryCreated,
}

// subscribePresenter routes bus events into the presenter channel. Pulses
// are dropped while the presenter lags. Verbose feed events block the
// emitting worker so that no line is lost.
func subscribePresenter(bus *event.Bus, events chan event.Event, verbose bool) (unsubscribe func()) {
	unsubs := []func(){bus.Subscribe(event.Forward(events), event.Pulse)}
	if verbose {
		unsubs = append(unsubs, bus.Subscribe(func(ev event.Event) { events <- ev }, feedTypes...))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
