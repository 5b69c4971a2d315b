package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpRaw bool

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the live-buffer report",
		Long: `The dump command prints every live buffer with its planes and the
total resident backing size. --raw prints the daemon's own text report.

Example:
  gfxctl dump
  gfxctl dump --raw
  gfxctl dump --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
	cmd.Flags().BoolVar(&dumpRaw, "raw", false, "Print the daemon's text report unchanged")
	return cmd
}

func runDump() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if dumpRaw {
		text, err := c.Dump()
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		printInfo("%s", text)
		return nil
	}

	rep, err := c.DumpReport()
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if jsonOut {
		return printJSON(rep)
	}
	printInfo("%s", renderReport(rep))
	return nil
}
