package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	g := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:           "parfs",
		Short:         "Parallel copy, mirror, delete and scan of directory trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.register(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(
		newCopyCmd(g, false),
		newCopyCmd(g, true),
		newDeleteCmd(g),
		newScanCmd(g),
		newVersionCmd(),
		docsCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the parfs version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "parfs %s\n", version)
		},
	}
}

// exitError carries a process exit code through cobra without printing.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
