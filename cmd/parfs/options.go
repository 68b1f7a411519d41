package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/parfs/internal/config"
	"github.com/bamsammich/parfs/internal/engine"
	"github.com/bamsammich/parfs/internal/filter"
	"github.com/bamsammich/parfs/internal/fsys"
	"github.com/bamsammich/parfs/internal/ui"
)

// globalOpts are the persistent flags shared by every operation.
type globalOpts struct {
	configFile string
	logFile    string
	workers    int
	verbose    bool
	quiet      bool
	dryRun     bool
	noProgress bool
}

func (g *globalOpts) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.IntVarP(&g.workers, "workers", "n", 0, "number of workers (default: min(NumCPU*2, 32))")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "print every entry and debug logs")
	f.BoolVarP(&g.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVar(&g.dryRun, "dry-run", false, "report what would change without touching the filesystem")
	f.BoolVar(&g.noProgress, "no-progress", false, "disable progress display")
	f.StringVar(&g.logFile, "log", "", "write structured JSON log to FILE")
	f.StringVar(&g.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/parfs/config.toml)")
}

// loadConfig reads --config when given, else the optional XDG file, and
// applies its defaults to flags not set explicitly.
func (g *globalOpts) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if g.configFile != "" {
		cfg, err = config.LoadFile(g.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}
	if !cmd.Flags().Changed("workers") && cfg.Defaults.Workers != nil {
		g.workers = *cfg.Defaults.Workers
	}
	return cfg, nil
}

// setupLogging installs the default logger. The returned closer flushes the
// --log file, if any.
func (g *globalOpts) setupLogging(stderr io.Writer) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	switch {
	case g.verbose:
		level = slog.LevelDebug
	case g.quiet:
		level = slog.LevelWarn
	}
	var handler slog.Handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	closer := func() error { return nil }

	if g.logFile != "" {
		lf, err := os.Create(g.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(handler, jsonHandler)
		closer = lf.Close
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// fsOpts are the flags that tune file copying.
type fsOpts struct {
	bwLimit          string
	largeFile        string
	progressInterval time.Duration
}

func (o *fsOpts) register(f *pflag.FlagSet) {
	f.StringVar(&o.bwLimit, "bwlimit", "", "bandwidth limit per second (e.g. 100M, 1G)")
	f.StringVar(&o.largeFile, "large-file", "", "copy files at least SIZE with kernel offload in chunks (default 16M)")
	f.DurationVar(&o.progressInterval, "progress-interval", 0, "minimum time between per-file progress updates")
}

// newFS builds the filesystem from flags, falling back to config defaults.
// The copy-buffer pool is sized for workers (<= 0 uses the engine default).
func (o *fsOpts) newFS(cmd *cobra.Command, d config.DefaultsConfig, workers int) (*fsys.FS, error) {
	if workers <= 0 {
		workers = engine.DefaultWorkers()
	}
	opts := fsys.Options{Buffers: fsys.NewBuffers(workers)}

	bw, err := sizeFlag(cmd, "bwlimit", o.bwLimit, d.BWLimitBytes)
	if err != nil {
		return nil, err
	}
	opts.Limiter = fsys.NewBWLimiter(bw)

	if opts.LargeFileThreshold, err = sizeFlag(cmd, "large-file", o.largeFile, d.LargeFileBytes); err != nil {
		return nil, err
	}

	opts.ProgressInterval = o.progressInterval
	if !cmd.Flags().Changed("progress-interval") {
		every, ok, err := d.ProgressEvery()
		if err != nil {
			return nil, err
		}
		if ok {
			opts.ProgressInterval = every
		}
	}
	return fsys.NewLocal(opts), nil
}

// sizeFlag parses a size flag, or the config default when the flag is unset.
func sizeFlag(cmd *cobra.Command, name, val string, fromConfig func() (int64, bool, error)) (int64, error) {
	if !cmd.Flags().Changed(name) {
		n, _, err := fromConfig()
		return n, err
	}
	n, err := filter.ParseSize(val)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return n, nil
}

// filterOpts collect include/exclude rules in command-line order.
type filterOpts struct {
	chain      *filter.Chain
	filterFile string
	minSize    string
	maxSize    string
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "pattern" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

func (o *filterOpts) register(f *pflag.FlagSet) {
	o.chain = filter.NewChain()
	f.Var(&filterFlag{chain: o.chain}, "exclude", "exclude entries matching PATTERN (repeatable)")
	f.Var(&filterFlag{chain: o.chain, include: true}, "include", "include entries matching PATTERN (repeatable)")
	f.StringVar(&o.filterFile, "filter", "", "read filter rules from FILE")
	f.StringVar(&o.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	f.StringVar(&o.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
}

// build finishes the chain. It returns nil when no rule was given.
func (o *filterOpts) build() (*filter.Chain, error) {
	if o.filterFile != "" {
		if err := o.chain.LoadFile(o.filterFile); err != nil {
			return nil, fmt.Errorf("load filter file: %w", err)
		}
	}
	if o.minSize != "" {
		n, err := filter.ParseSize(o.minSize)
		if err != nil {
			return nil, fmt.Errorf("invalid --min-size: %w", err)
		}
		o.chain.SetMinSize(n)
	}
	if o.maxSize != "" {
		n, err := filter.ParseSize(o.maxSize)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-size: %w", err)
		}
		o.chain.SetMaxSize(n)
	}
	if o.chain.Empty() {
		return nil, nil
	}
	return o.chain, nil
}
