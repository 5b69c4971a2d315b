package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newParamsCmd())
}

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params <name>",
		Short: "Show the parameters of a live buffer",
		Long: `The params command looks a buffer up by its global name and prints
its pixel format and final plane parameters.

Example:
  gfxctl params 7
  gfxctl params 7 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(args)
		},
	}
	return cmd
}

func runParams(args []string) error {
	name, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil || name == 0 {
		return fmt.Errorf("invalid buffer name %q", args[0])
	}

	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	info, err := c.GetParams(uint32(name))
	if err != nil {
		return fmt.Errorf("get params: %w", err)
	}

	if jsonOut {
		return printJSON(allocResult{
			Name:        info.Name,
			Descriptor:  -1,
			PixelFormat: info.PixelFormat,
			Planes:      info.PlaneParams(),
		})
	}

	printInfo("\nBuffer %d (format 0x%08x, %d planes):\n", info.Name, info.PixelFormat, info.NumPlanes)
	for i, p := range info.PlaneParams() {
		printInfo("  %d) %s\n", i, p)
		printInfo("     flags: %s\n", p.Flags)
	}
	return nil
}
