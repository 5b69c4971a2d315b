package buffer

import (
	"sync/atomic"

	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// Handle is one counted reference to an Object. Every Handle must be Put
// exactly once; the Put that drops the last reference frees the buffer.
type Handle struct {
	obj *Object
	put atomic.Bool
}

// Object returns the referenced buffer.
func (h *Handle) Object() *Object { return h.obj }

// Name returns the buffer's name.
func (h *Handle) Name() names.Name { return h.obj.Name() }

// Info returns the buffer's parameter block.
func (h *Handle) Info() (format.Info, error) {
	if h.put.Load() {
		return format.Info{}, ErrInvalidHandle
	}
	return h.obj.Info()
}

// Dup returns a new reference to the same buffer.
func (h *Handle) Dup() (*Handle, error) {
	if h.put.Load() {
		return nil, ErrInvalidHandle
	}
	if err := h.obj.retain(); err != nil {
		return nil, err
	}
	return &Handle{obj: h.obj}, nil
}

// Put drops the reference. A second Put on the same Handle returns
// ErrInvalidHandle.
func (h *Handle) Put() error {
	if !h.put.CompareAndSwap(false, true) {
		return ErrInvalidHandle
	}
	return h.obj.unref()
}
