package buffer

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/internal/format"
)

func newManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m := New(opts)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func openSession(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func plane(flags format.MemFlags, bpp uint8, w, h, align uint16) format.Params {
	return format.Params{Flags: flags, BPP: bpp, Width: w, Height: h, StridePixels: w, AlignBytes: align}
}

func request(planes ...format.Params) *format.Request {
	req := &format.Request{PixelFormat: 0x1}
	for i, p := range planes {
		req.Planes[i].Params = p
	}
	return req
}

// countingAllocator hands out non-resident regions and counts frees.
type countingAllocator struct {
	allocs atomic.Int32
	frees  atomic.Int32
}

func (c *countingAllocator) Allocate(req backing.Request) (backing.Allocation, error) {
	c.allocs.Add(1)
	free := func() error {
		c.frees.Add(1)
		return nil
	}
	return backing.Allocation{
		Region: backing.NewRegion(backing.StrategySystem, format.AlignPage(req.Length), nil, req.Hints, free),
	}, nil
}

var failingAllocator = backing.AllocatorFunc(func(backing.Request) (backing.Allocation, error) {
	return backing.Allocation{}, backing.ErrNoMemory
})
