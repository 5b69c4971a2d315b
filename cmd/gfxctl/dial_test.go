//go:build unix

package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/internal/logger"
	"github.com/joshuapare/gfxbuf/internal/server"
)

func TestDialLogsConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gfxctl.sock")
	ln, err := server.Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	mgr := buffer.New(buffer.DefaultOptions())
	srv := server.New(mgr, server.Options{})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
		_ = mgr.Shutdown()
	})

	var logs bytes.Buffer
	if err := logger.Init(logger.Options{Enabled: true, Writer: &logs, Level: slog.LevelDebug}); err != nil {
		t.Fatalf("logger.Init: %v", err)
	}
	t.Cleanup(func() { _ = logger.Init(logger.Options{}) })

	prev := socketPath
	socketPath = path
	t.Cleanup(func() { socketPath = prev })

	c, err := dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if !strings.Contains(logs.String(), "connected") || !strings.Contains(logs.String(), path) {
		t.Errorf("dial log = %q", logs.String())
	}

	socketPath = filepath.Join(t.TempDir(), "missing.sock")
	if _, err := dial(); err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Errorf("dial to a missing socket: %v", err)
	}
}
