package buffer

import (
	"errors"
	"fmt"
	"math"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// rollback collects the regions of a creation in progress.
type rollback []*backing.Region

// unwind releases the collected regions, newest first.
func (rb rollback) unwind() {
	for i := len(rb) - 1; i >= 0; i-- {
		_ = rb[i].Release()
	}
}

// create allocates every plane of req through ctx and names the result.
// Either all planes are backed and a Handle holding the only reference is
// returned, or nothing is left allocated. req's plane parameters are updated
// with the final geometry, and Name and NumPlanes are filled in.
func (m *Manager) create(ctx *backing.Context, req *format.Request) (*Handle, error) {
	if m.closed.Load() {
		return nil, ErrShutdown
	}
	n := req.ValidPlanes()
	if n == 0 {
		return nil, fmt.Errorf("%w: no plane has mem_flags set", ErrInvalidArgument)
	}

	obj := &Object{
		mgr:         m,
		pixelFormat: req.PixelFormat,
		planes:      make([]Plane, 0, n),
	}

	rb, err := m.allocatePlanes(ctx, obj, req, n)
	if err != nil {
		return nil, err
	}

	// The object must be complete before the registry publishes it.
	obj.refs.Store(1)
	wraps := m.names.Wraps()
	name, err := m.names.AllocateFunc(obj, func(n names.Name) { obj.name.Store(uint32(n)) })
	if err != nil {
		rb.unwind()
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if m.names.Wraps() != wraps {
		m.log.Debug("name roll-over", "name", uint32(name))
	}

	req.Name = uint64(name)
	req.NumPlanes = uint32(n)
	for i := range obj.planes {
		req.Planes[i].Params = obj.planes[i].params
	}
	return &Handle{obj: obj}, nil
}

// allocatePlanes backs the first n planes of req into obj under its teardown
// lock. On failure every plane already backed is released.
func (m *Manager) allocatePlanes(ctx *backing.Context, obj *Object, req *format.Request, n int) (rollback, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	var rb rollback
	for i := 0; i < n; i++ {
		p := req.Planes[i].Params
		breq, err := backingRequest(p)
		if err != nil {
			rb.unwind()
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		breq.Label = fmt.Sprintf("%s-p%d", ctx.Label(), i)
		p.StridePixels = uint16(breq.StridePixels)

		strategy := backing.Classify(p.Flags)
		plane, err := m.allocatePlane(ctx, strategy, breq, p)
		if err != nil {
			m.log.Error("plane allocation failed",
				"plane", i,
				"strategy", strategy.String(),
				"flags", p.Flags.String(),
				"length", breq.Length,
				"err", err)
			rb.unwind()
			obj.planes = obj.planes[:0]
			return nil, fmt.Errorf("plane %d (%s): %w", i, strategy, err)
		}
		rb = append(rb, plane.region)
		obj.planes = append(obj.planes, plane)
	}
	return rb, nil
}

// allocatePlane backs one plane and moves the region's first reference from
// the context to the plane.
func (m *Manager) allocatePlane(ctx *backing.Context, s backing.Strategy, breq backing.Request, p format.Params) (Plane, error) {
	alloc, err := ctx.Allocate(s, breq)
	if err != nil {
		return Plane{}, backingError(err)
	}
	region := alloc.Region
	if err := region.Retain(); err != nil {
		_ = ctx.Drop(region)
		return Plane{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := ctx.Drop(region); err != nil {
		_ = region.Release()
		return Plane{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	final := p
	if alloc.StridePixels != 0 {
		final.StridePixels = uint16(alloc.StridePixels)
	}
	final.OffsetBytes = alloc.OffsetBytes
	final.SizeBytes = uint32(region.Size())
	return Plane{params: final, region: region}, nil
}

// backingRequest validates plane geometry and computes its backing length:
// ceil(stride * bpp * height / 8) rounded up to the alignment. A stride of
// 0 means the width.
func backingRequest(p format.Params) (backing.Request, error) {
	if p.StridePixels == 0 {
		p.StridePixels = p.Width
	}
	switch {
	case p.BPP == 0:
		return backing.Request{}, fmt.Errorf("%w: bpp is 0", ErrInvalidArgument)
	case p.Width == 0 || p.Height == 0:
		return backing.Request{}, fmt.Errorf("%w: %dx%d plane", ErrInvalidArgument, p.Width, p.Height)
	case p.StridePixels < p.Width:
		return backing.Request{}, fmt.Errorf("%w: stride %d below width %d", ErrInvalidArgument, p.StridePixels, p.Width)
	}
	align := int(p.AlignBytes)
	if align == 0 {
		align = 1
	}
	if !format.IsPow2(align) {
		return backing.Request{}, fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidArgument, align)
	}

	length := format.Align(format.PlaneLength(int(p.StridePixels), int(p.BPP), int(p.Height)), align)
	if length > math.MaxUint32-format.PageSize {
		return backing.Request{}, fmt.Errorf("%w: plane of %d bytes", ErrInvalidArgument, length)
	}

	req := backing.Request{
		Flags:        p.Flags,
		Length:       length,
		Align:        align,
		Width:        int(p.Width),
		Height:       int(p.Height),
		BPP:          int(p.BPP),
		StridePixels: int(p.StridePixels),
		Hints:        backing.HintsFor(p.Flags),
	}
	if p.Flags.Any(format.MemTilerPage) {
		req.Width, req.Height = length, 1
	}
	return req, nil
}

// backingError maps a backing failure onto the buffer error kinds.
func backingError(err error) error {
	switch {
	case errors.Is(err, backing.ErrBadRequest):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, backing.ErrContextClosed):
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	default:
		return fmt.Errorf("%w: %w", ErrBackendAllocationFailed, err)
	}
}
