package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// Manager owns the name registry and the backing heaps, and hands out
// sessions. All methods are safe for concurrent use.
type Manager struct {
	opts  Options
	log   *slog.Logger
	heaps *backing.Heaps

	namesMu sync.RWMutex
	names   *names.Registry[Object]

	closed atomic.Bool

	sessMu      sync.Mutex
	sessions    map[uint64]*Session
	nextSession uint64
}

// New creates a manager.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	m := &Manager{
		opts: opts,
		log:  opts.Logger,
		heaps: backing.NewHeaps(backing.Config{
			ContigBytes: opts.ContigHeapBytes,
			TilerRows:   opts.TilerRows,
			Overrides:   opts.Allocators,
		}),
		sessions: make(map[uint64]*Session),
	}
	m.names = names.New[Object](names.WithLock(&m.namesMu), names.WithMaxName(opts.MaxName))
	return m
}

// Heaps returns the manager's backing heaps.
func (m *Manager) Heaps() *backing.Heaps { return m.heaps }

// Open starts a session with its own allocation context and descriptor table.
func (m *Manager) Open() (*Session, error) {
	if m.closed.Load() {
		return nil, ErrShutdown
	}
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	m.nextSession++
	id := m.nextSession
	s := &Session{
		id:    id,
		mgr:   m,
		ctx:   m.heaps.NewContext(fmt.Sprintf("gfxbuf-s%d", id)),
		table: newFDTable(m.opts.MaxDescriptors),
	}
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) forget(s *Session) {
	m.sessMu.Lock()
	delete(m.sessions, s.id)
	m.sessMu.Unlock()
}

// Sessions returns the number of open sessions.
func (m *Manager) Sessions() int {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	return len(m.sessions)
}

// Live returns the number of named buffers.
func (m *Manager) Live() int { return m.names.Len() }

// Lookup returns a new reference to the buffer called name. The caller must
// Put it.
func (m *Manager) Lookup(name names.Name) (*Handle, error) {
	obj, ok := m.names.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: name %d", ErrNotFound, name)
	}
	if err := obj.retain(); err != nil {
		return nil, fmt.Errorf("%w: name %d", ErrNotFound, name)
	}
	return &Handle{obj: obj}, nil
}

// GetParams returns the parameter block of the buffer called name.
func (m *Manager) GetParams(name names.Name) (format.Info, error) {
	if m.closed.Load() {
		return format.Info{}, ErrShutdown
	}
	obj, ok := m.names.Lookup(name)
	if !ok {
		return format.Info{}, fmt.Errorf("%w: name %d", ErrNotFound, name)
	}
	info, err := obj.Info()
	if err != nil {
		return format.Info{}, fmt.Errorf("%w: name %d", err, name)
	}
	return info, nil
}

// destroy is the release callback of an object. It runs once, when the last
// reference is dropped.
func (m *Manager) destroy(o *Object) error {
	name := o.Name()
	released := m.names.ReleaseIf(name, o) != 0

	o.mu.Lock()
	forced := o.forced
	o.mu.Unlock()
	if !released {
		// Shutdown drains the registry before it marks objects forced.
		if forced || m.closed.Load() {
			return nil
		}
		m.log.Error("release of unnamed buffer", "name", uint32(name))
		return fmt.Errorf("%w: name %d already released", ErrInvalidHandle, name)
	}

	if _, err := o.freePlanes(); err != nil {
		m.log.Error("buffer teardown failed", "name", uint32(name), "err", err)
		return err
	}
	m.log.Debug("buffer freed", "name", uint32(name))
	return nil
}

// Shutdown closes every session, then frees each buffer still named
// regardless of outstanding handles. Later calls to the manager fail with
// ErrShutdown; Puts of surviving handles succeed without effect.
func (m *Manager) Shutdown() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.log.Debug("shutdown", "report", m.Dump().String())

	m.sessMu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessMu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	left := m.names.Drain()
	for name, obj := range left {
		obj.mu.Lock()
		obj.forced = true
		obj.mu.Unlock()
		if _, err := obj.freePlanes(); err != nil {
			errs = append(errs, fmt.Errorf("name %d: %w", name, err))
		}
	}
	if len(left) > 0 {
		m.log.Warn("forced release of live buffers", "count", len(left))
	}
	return errors.Join(errs...)
}
