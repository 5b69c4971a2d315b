package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joshuapare/gfxbuf/internal/logger"
	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	socketPath string
	logLevel   string
	logDir     string
)

var rootCmd = &cobra.Command{
	Use:   "gfxctl",
	Short: "Run and inspect the shared graphics-buffer manager",
	Long: `gfxctl runs the graphics-buffer manager daemon and talks to it.
It allocates multi-plane buffers, looks them up by name, and shows the
live-buffer report, either once or as a refreshing view.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	SilenceUsage: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&socketPath, "socket", gfxbuf.DefaultSocket, "Daemon socket path")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write dated JSON logs to this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// initLogging enables the process logger when --log-level or --log-dir is set.
func initLogging() error {
	if logLevel == "" && logDir == "" {
		return nil
	}
	opts := logger.Options{Enabled: true, LogDir: logDir}
	if logLevel != "" {
		lvl, err := logger.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		opts.Level = lvl
	}
	return logger.Init(opts)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// dial connects to the daemon named by --socket.
func dial() (*gfxbuf.Client, error) {
	printVerbose("Connecting to %s\n", socketPath)
	c, err := gfxbuf.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("is the daemon running? %w", err)
	}
	logger.Debug("connected", "socket", socketPath)
	return c, nil
}
