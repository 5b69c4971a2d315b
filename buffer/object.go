package buffer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// Plane is one sub-allocation of a buffer: its final geometry and the
// region behind it.
type Plane struct {
	params format.Params
	region *backing.Region // nil once freed
}

// Object is a named multi-plane buffer. Its lifetime is driven by the
// references held through Handles; the last Put tears it down.
type Object struct {
	mgr         *Manager
	name        atomic.Uint32
	pixelFormat uint32
	planes      []Plane // fixed length after creation

	// mu guards plane teardown. Readers of plane parameters take it to
	// avoid observing a half-freed object.
	mu     sync.Mutex
	freed  bool
	forced bool // freed by Manager.Shutdown

	refs        atomic.Int64
	releaseOnce sync.Once
	releaseErr  error
}

// Name returns the buffer's name.
func (o *Object) Name() names.Name { return names.Name(o.name.Load()) }

// PixelFormat returns the opaque format tag given at creation.
func (o *Object) PixelFormat() uint32 { return o.pixelFormat }

// NumPlanes returns the plane count.
func (o *Object) NumPlanes() int { return len(o.planes) }

// Info returns the parameter block of a live object.
func (o *Object) Info() (format.Info, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.freed {
		return format.Info{}, ErrNotFound
	}
	return o.infoLocked(), nil
}

func (o *Object) infoLocked() format.Info {
	info := format.Info{
		PixelFormat: o.pixelFormat,
		Name:        uint64(o.Name()),
		NumPlanes:   uint32(len(o.planes)),
	}
	for i := range o.planes {
		info.Planes[i] = o.planes[i].params
	}
	return info
}

// retain takes a reference on a live object.
func (o *Object) retain() error {
	for {
		n := o.refs.Load()
		if n <= 0 {
			return ErrInvalidHandle
		}
		if o.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// unref drops one reference and runs the release on the last one.
func (o *Object) unref() error {
	n := o.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		o.refs.Add(1)
		return ErrInvalidHandle
	}
	o.releaseOnce.Do(func() {
		o.releaseErr = o.mgr.destroy(o)
	})
	return o.releaseErr
}

// freePlanes releases every plane region. It returns false when the object
// was already freed.
func (o *Object) freePlanes() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.freed {
		return false, nil
	}
	o.freed = true
	var errs []error
	for i := range o.planes {
		r := o.planes[i].region
		if r == nil {
			continue
		}
		o.planes[i].region = nil
		if err := r.Release(); err != nil {
			errs = append(errs, fmt.Errorf("plane %d: %w", i, err))
		}
	}
	return true, errors.Join(errs...)
}

// residentBytesLocked sums the resident region sizes. o.mu must be held.
func (o *Object) residentBytesLocked() int64 {
	var total int64
	for i := range o.planes {
		if r := o.planes[i].region; r != nil && r.Resident() {
			total += int64(r.Size())
		}
	}
	return total
}
