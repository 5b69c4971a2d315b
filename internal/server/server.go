//go:build unix

// Package server runs the buffer manager as a daemon on a unix socket.
// Each connection gets its own buffer.Session; disconnecting closes it and
// everything it still holds. Plane memory goes back to the client as
// SCM_RIGHTS descriptors.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/internal/logger"
	"github.com/joshuapare/gfxbuf/internal/proto"
)

// Options configures a Server.
type Options struct {
	// Logger receives connection and protocol events. If nil, logger.L is used.
	Logger *slog.Logger
}

// Server serves one buffer.Manager.
type Server struct {
	mgr *buffer.Manager
	log *slog.Logger

	mu      sync.Mutex
	ln      *net.UnixListener
	conns   map[*net.UnixConn]struct{}
	wg      sync.WaitGroup
	closing atomic.Bool
}

// New returns a server for mgr.
func New(mgr *buffer.Manager, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.L
	}
	return &Server{mgr: mgr, log: log, conns: make(map[*net.UnixConn]struct{})}
}

// Listen opens the socket at path, replacing a stale socket file.
func Listen(path string) (*net.UnixListener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is done or Close is called, then
// waits for every connection handler to finish. It returns nil on an orderly
// stop.
func (s *Server) Serve(ctx context.Context, ln *net.UnixListener) error {
	s.mu.Lock()
	s.ln = ln
	if s.closing.Load() {
		_ = ln.Close()
	}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.log.Info("serving", "addr", ln.Addr().String())
	for {
		c, err := ln.AcceptUnix()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(c) {
			_ = c.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.handle(c)
		}()
	}
}

// Close stops accepting and drops every connection. Sessions of dropped
// connections are closed by their handlers.
func (s *Server) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	return err
}

func (s *Server) track(c *net.UnixConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *net.UnixConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

// handle runs one connection's request loop.
func (s *Server) handle(c *net.UnixConn) {
	sess, err := s.mgr.Open()
	if err != nil {
		s.log.Warn("refusing connection", "err", err)
		return
	}
	log := s.log.With("session", sess.ID())
	log.Debug("connection opened")
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("session close", "err", err)
		}
		log.Debug("connection closed")
	}()

	for {
		f, err := proto.ReadFrame(c)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closing.Load() {
				log.Warn("read request", "err", err)
			}
			return
		}
		cmd := proto.Command(f.Kind)
		payload, files, err := s.dispatch(sess, cmd, f.Payload)
		if err != nil {
			log.Debug("request failed", "cmd", cmd.String(), "err", err)
		}
		if err := s.reply(c, err, payload, files); err != nil {
			if !s.closing.Load() {
				log.Warn("write response", "cmd", cmd.String(), "err", err)
			}
			return
		}
	}
}

func (s *Server) reply(c *net.UnixConn, cerr error, payload []byte, files []*os.File) error {
	defer closeFiles(files)
	code := buffer.CodeOf(cerr)
	if cerr != nil {
		payload = []byte(cerr.Error())
	}
	frame, err := proto.AppendFrame(nil, uint16(code), payload)
	if err != nil {
		return err
	}
	_, _, err = c.WriteMsgUnix(frame, rights(files), nil)
	return err
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
