package backing

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/gfxbuf/internal/mmfile"
)

// Region is one backing allocation, shared by reference.
type Region struct {
	strategy Strategy
	size     int
	hints    Hints
	mem      *mmfile.Mapping

	refs     atomic.Int32
	freeOnce sync.Once
	free     func() error
	freeErr  error
}

// NewRegion wraps mem (nil for a placeholder) in a region holding one
// reference. free runs after mem is closed, when the last reference drops.
func NewRegion(s Strategy, size int, mem *mmfile.Mapping, hints Hints, free func() error) *Region {
	r := &Region{strategy: s, size: size, hints: hints, mem: mem, free: free}
	r.refs.Store(1)
	return r
}

// Strategy returns the strategy that produced the region.
func (r *Region) Strategy() Strategy { return r.strategy }

// Size returns the region size in bytes.
func (r *Region) Size() int { return r.size }

// Hints returns the hints the region was allocated with.
func (r *Region) Hints() Hints { return r.hints }

// Resident reports whether real memory backs the region.
func (r *Region) Resident() bool { return r.mem != nil }

// Refs returns the current reference count.
func (r *Region) Refs() int { return int(r.refs.Load()) }

// Bytes returns the CPU mapping, or nil for a placeholder.
func (r *Region) Bytes() []byte {
	if r.mem == nil {
		return nil
	}
	return r.mem.Bytes()
}

// Export returns a new descriptor for the region's memory. The caller owns it.
func (r *Region) Export() (*os.File, error) {
	if r.mem == nil {
		return nil, ErrNotResident
	}
	if r.refs.Load() <= 0 {
		return nil, ErrReleased
	}
	return r.mem.Dup()
}

// Sync flushes CPU writes for regions allocated with HintNeedsSync.
func (r *Region) Sync() error {
	if r.mem == nil || r.hints&HintNeedsSync == 0 {
		return nil
	}
	return r.mem.Sync()
}

// Retain takes another reference.
func (r *Region) Retain() error {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops one reference and frees the region on the last one.
func (r *Region) Release() error {
	n := r.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		r.refs.Add(1)
		return ErrReleased
	}
	r.freeOnce.Do(func() {
		var err error
		if r.mem != nil {
			err = r.mem.Close()
		}
		if r.free != nil {
			if ferr := r.free(); err == nil {
				err = ferr
			}
		}
		r.freeErr = err
	})
	return r.freeErr
}
