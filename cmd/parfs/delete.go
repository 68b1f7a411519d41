package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/parfs/internal/engine"
	"github.com/bamsammich/parfs/internal/filter"
	"github.com/bamsammich/parfs/internal/fsys"
)

func newDeleteCmd(g *globalOpts) *cobra.Command {
	var (
		flt    filterOpts
		attrs  string
		reject string
	)

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a file or directory tree",
		Long: "Delete a file or directory tree, children before parents.\n\n" +
			"With --include/--exclude/--attr only matching files are deleted and\n" +
			"every directory is kept.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyAttributes(flt.chain, attrs, reject); err != nil {
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
			_, err = g.execute(cmd, job{
				cfg: engine.Config{
					Filter: chain,
					Source: args[0],
					Op:     engine.OpDelete,
				},
				fs:      fs,
				display: "delete",
				root:    args[0],
			})
			return err
		},
	}

	flt.register(cmd.Flags())
	cmd.Flags().StringVar(&attrs, "attr", "",
		"only delete files with any of these attributes (e.g. readonly,hidden)")
	cmd.Flags().StringVar(&reject, "skip-attr", "",
		"never delete files with any of these attributes")
	return cmd
}

// applyAttributes adds the --attr and --skip-attr masks to chain.
func applyAttributes(chain *filter.Chain, attrs, reject string) error {
	if attrs != "" {
		a, err := fsys.ParseAttributes(attrs)
		if err != nil {
			return fmt.Errorf("invalid --attr: %w", err)
		}
		chain.RequireAnyAttributes(a)
	}
	if reject != "" {
		a, err := fsys.ParseAttributes(reject)
		if err != nil {
			return fmt.Errorf("invalid --skip-attr: %w", err)
		}
		chain.RejectAttributes(a)
	}
	return nil
}
