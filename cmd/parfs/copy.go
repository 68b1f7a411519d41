package main

import (
	"github.com/spf13/cobra"

	"github.com/bamsammich/parfs/internal/compare"
	"github.com/bamsammich/parfs/internal/engine"
)

// newCopyCmd builds copy, or mirror when mirror is set. Mirror is copy
// with DeleteExtraFiles and SkipIdenticalFiles on by default.
func newCopyCmd(g *globalOpts, mirror bool) *cobra.Command {
	var (
		fo               fsOpts
		flt              filterOpts
		skipIdentical    bool
		deleteMismatched bool
		contentCompare   bool
	)

	use, short := "copy <source> <destination>", "Copy a file or directory tree"
	if mirror {
		use, short = "mirror <source> <destination>",
			"Make destination an exact copy of source, deleting extra entries"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			d := cfg.Defaults
			if !cmd.Flags().Changed("skip-identical") && d.SkipIdentical != nil {
				skipIdentical = *d.SkipIdentical
			}
			if !cmd.Flags().Changed("delete-mismatched") && d.DeleteMismatched != nil {
				deleteMismatched = *d.DeleteMismatched
			}

			fs, err := fo.newFS(cmd, d, g.workers)
			if err != nil {
				return err
			}
			chain, err := flt.build()
			if err != nil {
				return err
			}

			var opts engine.CopyOptions
			if skipIdentical {
				opts |= engine.SkipIdenticalFiles
			}
			if deleteMismatched {
				opts |= engine.DeleteMismatchedFiles
			}
			display := "copy"
			if mirror {
				opts |= engine.DeleteExtraFiles
				display = "mirror"
			}

			var cmp compare.Comparer
			if contentCompare {
				cmp = compare.Content{Hasher: fs}
				opts |= engine.SkipIdenticalFiles
			}

			_, err = g.execute(cmd, job{
				cfg: engine.Config{
					Comparer:    cmp,
					Filter:      chain,
					Source:      args[0],
					Destination: args[1],
					Op:          engine.OpCopy,
					Options:     opts,
				},
				fs:      fs,
				display: display,
				root:    args[0],
			})
			return err
		},
	}

	fo.register(cmd.Flags())
	flt.register(cmd.Flags())
	cmd.Flags().BoolVarP(&skipIdentical, "skip-identical", "u", mirror,
		"skip files whose size and modification time match the destination")
	cmd.Flags().BoolVar(&deleteMismatched, "delete-mismatched", false,
		"replace destination entries of a different kind (file vs directory vs symlink)")
	cmd.Flags().BoolVar(&contentCompare, "content-compare", false,
		"skip files whose contents (BLAKE3) match the destination; implies --skip-identical")
	return cmd
}
