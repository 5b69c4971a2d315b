package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
	"github.com/spf13/cobra"
)

var (
	allocFormat string
	allocPlanes []string
	allocExport bool
	allocHold   bool
)

func init() {
	rootCmd.AddCommand(newAllocCmd())
}

func newAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Allocate a buffer on the daemon",
		Long: `The alloc command creates a buffer with up to four planes and prints
its name and final plane parameters. Buffers belong to the connection, so
the buffer is freed when gfxctl exits unless --hold keeps it alive until
interrupted.

Example:
  gfxctl alloc --plane flags=SYSTEM,bpp=32,w=64,h=64
  gfxctl alloc --format NV12 --export --hold \
    --plane flags=TILER_8BIT,bpp=8,w=1920,h=1080 \
    --plane flags=TILER_16BIT,bpp=16,w=960,h=540`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc()
		},
	}
	cmd.Flags().StringVar(&allocFormat, "format", "0x1", "Pixel format (number or fourcc)")
	cmd.Flags().StringArrayVarP(&allocPlanes, "plane", "p", nil, "Plane spec: flags=..,bpp=..,w=..,h=..[,stride=..][,align=..]")
	cmd.Flags().BoolVar(&allocExport, "export", false, "Export each plane's memory")
	cmd.Flags().BoolVar(&allocHold, "hold", false, "Keep the buffer until interrupted")
	return cmd
}

// allocResult is the JSON shape of an alloc.
type allocResult struct {
	Name        uint64          `json:"name"`
	Descriptor  int32           `json:"descriptor"`
	PixelFormat uint32          `json:"pixel_format"`
	Planes      []gfxbuf.Params `json:"planes"`
	Exported    []bool          `json:"exported,omitempty"`
}

func buildRequest() (*gfxbuf.Request, error) {
	if len(allocPlanes) == 0 {
		return nil, fmt.Errorf("at least one --plane is required")
	}
	if len(allocPlanes) > gfxbuf.MaxPlanes {
		return nil, fmt.Errorf("at most %d planes, got %d", gfxbuf.MaxPlanes, len(allocPlanes))
	}
	pf, err := parsePixelFormat(allocFormat)
	if err != nil {
		return nil, err
	}
	planes := make([]gfxbuf.Params, len(allocPlanes))
	for i, spec := range allocPlanes {
		if planes[i], err = parsePlane(spec); err != nil {
			return nil, err
		}
	}
	return gfxbuf.NewRequest(pf, allocExport, planes...), nil
}

func runAlloc() error {
	req, err := buildRequest()
	if err != nil {
		return err
	}
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	files, err := c.Create(req)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	res := allocResult{Name: req.Name, Descriptor: req.Descriptor, PixelFormat: req.PixelFormat}
	for i := 0; i < int(req.NumPlanes); i++ {
		res.Planes = append(res.Planes, req.Planes[i].Params)
		if allocExport {
			res.Exported = append(res.Exported, files[i] != nil)
		}
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printAlloc(res)
	}

	if !allocHold {
		return nil
	}
	printInfo("Holding buffer %d, press Ctrl+C to release\n", res.Name)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func printAlloc(res allocResult) {
	printInfo("\nBuffer %d (format 0x%08x, descriptor %d):\n", res.Name, res.PixelFormat, res.Descriptor)
	for i, p := range res.Planes {
		printInfo("  %d) %s\n", i, p)
		printVerbose("     flags: %s\n", p.Flags)
		if len(res.Exported) > i && res.Exported[i] {
			printVerbose("     memory exported\n")
		}
	}
}
