// Package mmfile provides platform-specific helpers for anonymous, shareable
// memory regions. On Linux a region is a memfd mapped MAP_SHARED so its
// descriptor can be handed to another process; other platforms fall back to
// private memory that cannot be exported.
package mmfile

import (
	"errors"
	"os"
	"sync"
)

var (
	// ErrEmpty indicates a zero or negative region size.
	ErrEmpty = errors.New("mmfile: empty region")
	// ErrNotShareable indicates the region has no descriptor to export.
	ErrNotShareable = errors.New("mmfile: region is not shareable")
	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("mmfile: region closed")
)

// Options tune how a region is created.
type Options struct {
	// Populate pre-faults every page at creation time.
	Populate bool

	// WillNeed advises the kernel the pages will be touched soon.
	WillNeed bool
}

// Mapping is one anonymous memory region.
type Mapping struct {
	name string

	mu     sync.Mutex
	data   []byte
	fd     int
	closed bool
	unmap  func() error
}

// Name returns the debug name given at creation.
func (m *Mapping) Name() string { return m.name }

// Bytes returns the mapped memory. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Len returns the mapped size in bytes.
func (m *Mapping) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Fd returns the backing descriptor, or -1 when the region is not shareable.
func (m *Mapping) Fd() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return -1
	}
	return m.fd
}

// Dup returns a new close-on-exec descriptor for the region.
// The caller owns the returned file.
func (m *Mapping) Dup() (*os.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.fd < 0 {
		return nil, ErrNotShareable
	}
	return dupFd(m.fd, m.name)
}

// Sync flushes CPU writes so other mappers observe them.
func (m *Mapping) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return syncData(m.data)
}

// Close unmaps the region and closes its descriptor. Closing twice is a no-op.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.unmap()
	m.data = nil
	m.fd = -1
	return err
}
