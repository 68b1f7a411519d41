package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bamsammich/parfs/internal/engine"
	"github.com/bamsammich/parfs/internal/ui"
)

func newScanCmd(g *globalOpts) *cobra.Command {
	var (
		flt     filterOpts
		longest int
	)

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Summarize a tree: totals, longest paths and largest directories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			chain, err := flt.build()
			if err != nil {
				return err
			}
			fs, err := (&fsOpts{}).newFS(cmd, cfg.Defaults, g.workers)
			if err != nil {
				return err
			}

			res, err := g.execute(cmd, job{
				cfg: engine.Config{
					Filter: chain,
					Source: args[0],
					Op:     engine.OpInspect,
					TopK:   longest,
				},
				fs:      fs,
				display: "scan",
				root:    args[0],
			})
			if res.Inspection != nil {
				printInspection(cmd.OutOrStdout(), res.Inspection)
			}
			return err
		},
	}

	flt.register(cmd.Flags())
	cmd.Flags().IntVarP(&longest, "longest", "k", 10, "how many longest paths and largest directories to list")
	return cmd
}

func printInspection(w io.Writer, insp *engine.Inspection) {
	fmt.Fprintf(w, "%s\n  dirs %s  files %s  symlinks %s  size %s\n",
		insp.Root,
		ui.FormatCount(insp.Dirs),
		ui.FormatCount(insp.Files),
		ui.FormatCount(insp.Symlinks),
		ui.FormatBytes(insp.Bytes))

	if len(insp.LongestPaths) > 0 {
		fmt.Fprintln(w, "longest paths:")
		for _, p := range insp.LongestPaths {
			fmt.Fprintf(w, "  %5d  %s\n", p.Length, p.Path)
		}
	}
	if len(insp.LargestDirs) > 0 {
		fmt.Fprintln(w, "largest directories:")
		for _, d := range insp.LargestDirs {
			fmt.Fprintf(w, "  %10s  %s\n", ui.FormatBytes(d.Bytes), d.Path)
		}
	}
}
