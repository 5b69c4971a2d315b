package buffer

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// Session is one caller of the manager, the equivalent of a process with
// the device open. It has its own allocation context and descriptor table.
//
// Descriptors are small integers, lowest free first. A buffer descriptor
// holds one reference to its buffer; a plane descriptor holds one reference
// to a single plane's region. Closing the session closes every descriptor.
type Session struct {
	id  uint64
	mgr *Manager
	ctx *backing.Context

	mu     sync.Mutex
	table  *fdTable
	closed bool
}

// ID returns the session's identifier.
func (s *Session) ID() uint64 { return s.id }

// Len returns the number of open descriptors.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.used
}

// Create allocates the buffer described by req. On success req carries the
// name, the buffer descriptor, the final per-plane parameters and, when
// req.ExportPlanes is set, one descriptor per resident plane. On failure
// every output is reset and nothing stays allocated.
func (s *Session) Create(req *format.Request) error {
	req.ResetOutputs()
	n := req.ValidPlanes()
	if n == 0 {
		return fmt.Errorf("%w: no plane has mem_flags set", ErrInvalidArgument)
	}
	want := 1
	if req.ExportPlanes {
		want += n
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	fds, err := s.table.reserve(want)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	h, err := s.mgr.create(s.ctx, req)
	if err != nil {
		s.unreserve(fds)
		req.ResetOutputs()
		return err
	}

	entries := make([]*entry, 0, want)
	entries = append(entries, &entry{kind: kindBuffer, handle: h})
	planeFDs := make([]int32, n)
	for i := range planeFDs {
		planeFDs[i] = format.NoDescriptor
	}
	if req.ExportPlanes {
		for i := range h.obj.planes {
			r := h.obj.planes[i].region
			if !r.Resident() {
				continue
			}
			if err := r.Retain(); err != nil {
				for _, e := range entries {
					_ = e.release()
				}
				s.unreserve(fds)
				req.ResetOutputs()
				return fmt.Errorf("%w: export plane %d: %w", ErrInternal, i, err)
			}
			planeFDs[i] = int32(fds[len(entries)])
			entries = append(entries, &entry{kind: kindPlane, plane: &planeExport{name: h.Name(), index: i, region: r}})
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, e := range entries {
			_ = e.release()
		}
		req.ResetOutputs()
		return ErrSessionClosed
	}
	for i, e := range entries {
		s.table.fill(fds[i], e)
	}
	for _, fd := range fds[len(entries):] {
		_, _ = s.table.remove(fd)
	}
	s.mu.Unlock()

	req.Descriptor = int32(fds[0])
	for i, fd := range planeFDs {
		req.Planes[i].ExportFd = fd
	}
	return nil
}

func (s *Session) unreserve(fds []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, fd := range fds {
		_, _ = s.table.remove(fd)
	}
}

func (s *Session) get(fd int) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	e, err := s.table.get(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: fd %d", ErrInvalidHandle, fd)
	}
	return e, nil
}

func (s *Session) getBuffer(fd int) (*entry, error) {
	e, err := s.get(fd)
	if err != nil {
		return nil, err
	}
	if e.kind != kindBuffer {
		return nil, fmt.Errorf("%w: fd %d is not a buffer", ErrInvalidHandle, fd)
	}
	return e, nil
}

// FromFD returns a new reference to the buffer behind fd. It fails with
// ErrInvalidHandle when fd is not a buffer descriptor. The caller must Put
// the handle.
func (s *Session) FromFD(fd int) (*Handle, error) {
	e, err := s.getBuffer(fd)
	if err != nil {
		return nil, err
	}
	return e.handle.Dup()
}

// GetFD installs a new reference to h's buffer and returns its descriptor.
// h itself is unaffected.
func (s *Session) GetFD(h *Handle) (int, error) {
	nh, err := h.Dup()
	if err != nil {
		return -1, err
	}
	return s.install(&entry{kind: kindBuffer, handle: nh})
}

// install takes ownership of e. If no slot is free, e is released.
func (s *Session) install(e *entry) (int, error) {
	s.mu.Lock()
	var fd int
	err := ErrSessionClosed
	if !s.closed {
		fd, err = s.table.install(e)
	}
	s.mu.Unlock()
	if err != nil {
		_ = e.release()
		return -1, err
	}
	return fd, nil
}

// CloseFD closes one descriptor, dropping its reference.
func (s *Session) CloseFD(fd int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	e, err := s.table.get(fd)
	if err == nil {
		_, err = s.table.remove(fd)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: fd %d", ErrInvalidHandle, fd)
	}
	return e.release()
}

// Dup duplicates fd within the session.
func (s *Session) Dup(fd int) (int, error) {
	return s.Pass(fd, s)
}

// Pass installs a new reference to whatever fd refers to in dst's table,
// the way a descriptor travels to another process. fd stays open here.
func (s *Session) Pass(fd int, dst *Session) (int, error) {
	e, err := s.get(fd)
	if err != nil {
		return -1, err
	}
	ne, err := e.dup()
	if err != nil {
		return -1, fmt.Errorf("fd %d: %w", fd, err)
	}
	return dst.install(ne)
}

// Info returns the parameter block of the buffer behind fd.
func (s *Session) Info(fd int) (format.Info, error) {
	e, err := s.getBuffer(fd)
	if err != nil {
		return format.Info{}, err
	}
	return e.handle.Info()
}

// GetParams returns the parameter block of the buffer called name.
func (s *Session) GetParams(name names.Name) (format.Info, error) {
	if err := s.checkOpen(); err != nil {
		return format.Info{}, err
	}
	return s.mgr.GetParams(name)
}

// Sync would wait up to timeout for the buffer behind fd to become safe to
// access. Fences are not implemented: a valid buffer descriptor yields
// ErrNotSupported.
func (s *Session) Sync(fd int, timeout time.Duration) error {
	if _, err := s.getBuffer(fd); err != nil {
		return err
	}
	s.mgr.log.Debug("sync not implemented", "session", s.id, "fd", fd, "timeout", timeout)
	return ErrNotSupported
}

// PlaneExport describes a plane descriptor.
type PlaneExport struct {
	Name  names.Name
	Plane int
	Size  int
}

// Plane describes the plane descriptor fd.
func (s *Session) Plane(fd int) (PlaneExport, error) {
	e, err := s.get(fd)
	if err != nil {
		return PlaneExport{}, err
	}
	if e.kind != kindPlane {
		return PlaneExport{}, fmt.Errorf("%w: fd %d is not a plane", ErrInvalidHandle, fd)
	}
	return PlaneExport{Name: e.plane.name, Plane: e.plane.index, Size: e.plane.region.Size()}, nil
}

// OpenPlane returns an OS file for the plane descriptor fd that another
// process can map. The caller owns the file.
func (s *Session) OpenPlane(fd int) (*os.File, error) {
	e, err := s.get(fd)
	if err != nil {
		return nil, err
	}
	if e.kind != kindPlane {
		return nil, fmt.Errorf("%w: fd %d is not a plane", ErrInvalidHandle, fd)
	}
	f, err := e.plane.region.Export()
	if err != nil {
		return nil, fmt.Errorf("%w: fd %d: %w", ErrNotSupported, fd, err)
	}
	return f, nil
}

// Bytes returns the CPU mapping of one plane of the buffer behind fd.
func (s *Session) Bytes(fd, plane int) ([]byte, error) {
	e, err := s.getBuffer(fd)
	if err != nil {
		return nil, err
	}
	o := e.handle.obj
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.freed {
		return nil, ErrNotFound
	}
	if plane < 0 || plane >= len(o.planes) {
		return nil, fmt.Errorf("%w: plane %d of %d", ErrInvalidArgument, plane, len(o.planes))
	}
	b := o.planes[plane].region.Bytes()
	if b == nil {
		return nil, fmt.Errorf("%w: plane %d is not resident", ErrNotSupported, plane)
	}
	return b, nil
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Close closes every descriptor and destroys the allocation context.
// Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := s.table.drain()
	s.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.ctx.Destroy(); err != nil {
		errs = append(errs, err)
	}
	s.mgr.forget(s)
	return errors.Join(errs...)
}
