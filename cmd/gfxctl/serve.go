package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/logger"
	"github.com/joshuapare/gfxbuf/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveContigMB  int
	serveTilerRows int
	serveMaxFDs    int
	serveMaxName   uint32
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	defaults := buffer.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the buffer manager daemon",
		Long: `The serve command runs the buffer manager on a unix socket until it
receives SIGINT or SIGTERM. Every connection is a session: disconnecting
closes every descriptor it still holds. On exit all live buffers are freed.

Example:
  gfxctl serve
  gfxctl serve --socket /run/gfxbuf.sock --contig-mb 64 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().IntVar(&serveContigMB, "contig-mb", defaults.ContigHeapBytes>>20, "Contiguous heap size in MiB")
	cmd.Flags().IntVar(&serveTilerRows, "tiler-rows", defaults.TilerRows, "Tiler container height in rows")
	cmd.Flags().IntVar(&serveMaxFDs, "max-fds", defaults.MaxDescriptors, "Descriptor table size per session")
	cmd.Flags().Uint32Var(&serveMaxName, "max-name", uint32(defaults.MaxName), "Largest buffer name before roll-over")
	return cmd
}

// serveOptions maps the serve flags onto manager options.
func serveOptions() (buffer.Options, error) {
	if serveContigMB < 0 || serveTilerRows <= 0 || serveMaxFDs <= 0 || serveMaxName == 0 {
		return buffer.Options{}, fmt.Errorf("heap sizes, --max-fds and --max-name must be positive")
	}
	opts := buffer.DefaultOptions()
	opts.Logger = logger.L
	opts.ContigHeapBytes = serveContigMB << 20
	opts.TilerRows = serveTilerRows
	opts.MaxDescriptors = serveMaxFDs
	opts.MaxName = names.Name(serveMaxName)
	return opts, nil
}

func runServe() error {
	opts, err := serveOptions()
	if err != nil {
		return err
	}

	ln, err := server.Listen(socketPath)
	if err != nil {
		return err
	}
	mgr := buffer.New(opts)
	srv := server.New(mgr, server.Options{Logger: logger.L})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printInfo("Serving on %s (contig %d MiB, tiler %d rows)\n", socketPath, serveContigMB, serveTilerRows)
	serveErr := srv.Serve(ctx, ln)

	live := mgr.Live()
	if err := mgr.Shutdown(); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("daemon stopped", "socket", socketPath, "freed", live)
	printVerbose("Freed %d live buffer(s)\n", live)
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	printInfo("Stopped\n")
	return nil
}
