package backing

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gfxbuf/internal/format"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		flags format.MemFlags
		want  Strategy
	}{
		{0, StrategySystem},
		{format.MemSystem | format.MemCached, StrategySystem},
		{format.MemContig, StrategyContig},
		{format.MemContig | format.MemTiler8, StrategyTiler},
		{format.MemTilerPage, StrategyTiler},
		{format.MemTiler32 | format.MemFBVRAM, StrategyFBVRAM},
		{format.MemContig | format.MemFBVRAM, StrategyFBVRAM},
	}
	for _, tt := range tests {
		t.Run(tt.flags.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.flags))
		})
	}
}

func TestHintsFor(t *testing.T) {
	assert.Equal(t, HintNeedsSync, HintsFor(format.MemSystem))
	assert.Equal(t, HintCached, HintsFor(format.MemCached|format.MemMapPageable))
	assert.Equal(t, HintCached|HintNeedsSync|HintZeroInit, HintsFor(format.MemCached|format.MemZeroInit))
}

func TestRegionReleaseRunsFreeOnce(t *testing.T) {
	var frees atomic.Int32
	r := NewRegion(StrategySystem, 4096, nil, 0, func() error {
		frees.Add(1)
		return nil
	})

	const n = 32
	for i := 0; i < n; i++ {
		require.NoError(t, r.Retain())
	}

	var wg sync.WaitGroup
	for i := 0; i < n+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Release()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), frees.Load())
	require.Equal(t, 0, r.Refs())
	require.ErrorIs(t, r.Release(), ErrReleased)
	require.ErrorIs(t, r.Retain(), ErrReleased)
	require.Equal(t, int32(1), frees.Load())
}

func TestRegionFreeErrorIsReported(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegion(StrategyContig, 4096, nil, 0, func() error { return boom })
	require.ErrorIs(t, r.Release(), boom)
}

func TestSystemAllocateRoundsToPagesAndAlign(t *testing.T) {
	s := NewSystem()

	a, err := s.Allocate(Request{Length: 100, Align: 1, Label: "t"})
	require.NoError(t, err)
	defer a.Region.Release()
	require.Equal(t, format.PageSize, a.Region.Size())
	require.Len(t, a.Region.Bytes(), format.PageSize)
	require.Zero(t, a.StridePixels)

	b, err := s.Allocate(Request{Length: 5000, Align: 16384, Label: "t"})
	require.NoError(t, err)
	defer b.Region.Release()
	require.Equal(t, 16384, b.Region.Size())

	_, err = s.Allocate(Request{Length: 0})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestContigLimit(t *testing.T) {
	c := NewContig(2 * format.PageSize)

	a, err := c.Allocate(Request{Length: 10, Label: "a"})
	require.NoError(t, err)
	b, err := c.Allocate(Request{Length: 10, Label: "b"})
	require.NoError(t, err)
	require.Equal(t, 2*format.PageSize, c.InUse())

	_, err = c.Allocate(Request{Length: 10, Label: "c"})
	require.ErrorIs(t, err, ErrNoMemory)
	require.Equal(t, 2*format.PageSize, c.InUse(), "failed allocation reserves nothing")

	require.NoError(t, a.Region.Release())
	require.Equal(t, format.PageSize, c.InUse())

	d, err := c.Allocate(Request{Length: 10, Label: "d"})
	require.NoError(t, err)
	require.NoError(t, b.Region.Release())
	require.NoError(t, d.Region.Release())
	require.Zero(t, c.InUse())
}

func TestFBVRAMPlaceholder(t *testing.T) {
	a, err := NewFBVRAM().Allocate(Request{Length: 8192})
	require.NoError(t, err)
	require.False(t, a.Region.Resident())
	require.Nil(t, a.Region.Bytes())
	require.Equal(t, 8192, a.Region.Size())

	_, err = a.Region.Export()
	require.ErrorIs(t, err, ErrNotResident)
	require.NoError(t, a.Region.Sync())
	require.NoError(t, a.Region.Release())
}

func TestTilerModeFor(t *testing.T) {
	assert.Equal(t, TilerPage, TilerModeFor(format.MemTilerPage|format.MemTiler8))
	assert.Equal(t, Tiler8, TilerModeFor(format.MemTiler8|format.MemTiler32))
	assert.Equal(t, Tiler16, TilerModeFor(format.MemTiler16))
	assert.Equal(t, Tiler32, TilerModeFor(format.MemTiler32))
}

func TestTiler2DGeometry(t *testing.T) {
	tl := NewTiler(256)

	a, err := tl.Allocate(Request{Flags: format.MemTiler8, Width: 100, Height: 10, BPP: 8, StridePixels: 100, Align: 1, Label: "a"})
	require.NoError(t, err)
	b, err := tl.Allocate(Request{Flags: format.MemTiler8, Width: 100, Height: 10, BPP: 8, StridePixels: 100, Align: 1, Label: "b"})
	require.NoError(t, err)

	require.Equal(t, Tiler8Stride, a.StridePixels)
	require.Equal(t, uint32(0), a.OffsetBytes)
	require.Equal(t, uint32(128), b.OffsetBytes, "second area sits beside the first")
	require.Equal(t, format.AlignPage(Tiler8Stride*10), a.Region.Size())
	require.Equal(t, 32, tl.RowsInUse(Tiler8))

	c, err := tl.Allocate(Request{Flags: format.MemTiler32, Width: 64, Height: 64, BPP: 32, StridePixels: 64, Align: 1, Label: "c"})
	require.NoError(t, err)
	require.Equal(t, Tiler16Stride/4, c.StridePixels)
	require.Zero(t, c.Region.Hints()&HintCached)

	require.NoError(t, a.Region.Release())
	require.NoError(t, b.Region.Release())
	require.NoError(t, c.Region.Release())
	require.Zero(t, tl.RowsInUse(Tiler8))
	require.Zero(t, tl.RowsInUse(Tiler32))
}

func TestTilerReusesEmptyBands(t *testing.T) {
	tl := NewTiler(96)

	low, err := tl.Allocate(Request{Flags: format.MemTiler16, Width: 16, Height: 32, BPP: 16, Label: "low"})
	require.NoError(t, err)
	high, err := tl.Allocate(Request{Flags: format.MemTiler16, Width: 16, Height: 40, BPP: 16, Label: "high"})
	require.NoError(t, err)
	require.Equal(t, 96, tl.RowsInUse(Tiler16))

	// A full-width area fits no partly used band and no new one.
	_, err = tl.Allocate(Request{Flags: format.MemTiler16, Width: Tiler16Stride / 2, Height: 1, BPP: 16, Label: "full"})
	require.ErrorIs(t, err, ErrNoMemory)

	// The lower band empties but the upper one still holds rows.
	require.NoError(t, low.Region.Release())
	require.Equal(t, 96, tl.RowsInUse(Tiler16))

	again, err := tl.Allocate(Request{Flags: format.MemTiler16, Width: 16, Height: 8, BPP: 16, Label: "again"})
	require.NoError(t, err)
	require.Equal(t, uint32(0), again.OffsetBytes)

	require.NoError(t, high.Region.Release())
	require.Equal(t, 32, tl.RowsInUse(Tiler16))
	require.NoError(t, again.Region.Release())
	require.Zero(t, tl.RowsInUse(Tiler16))
}

func TestTilerRejectsWideArea(t *testing.T) {
	tl := NewTiler(64)
	_, err := tl.Allocate(Request{Flags: format.MemTiler8, Width: Tiler8Stride + 1, Height: 1, BPP: 8})
	require.ErrorIs(t, err, ErrNoMemory)
	_, err = tl.Allocate(Request{Flags: format.MemTiler8, Width: 0, Height: 1, BPP: 8})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestTilerPageMode(t *testing.T) {
	tl := NewTiler(1)
	limit := Tiler16Stride / format.PageSize

	a, err := tl.Allocate(Request{Flags: format.MemTilerPage, Length: 3 * format.PageSize, StridePixels: 640, Label: "p"})
	require.NoError(t, err)
	require.Zero(t, a.StridePixels, "page mode keeps the requested stride")
	require.Zero(t, a.OffsetBytes)
	require.Equal(t, 3, tl.PagesInUse())

	_, err = tl.Allocate(Request{Flags: format.MemTilerPage, Length: (limit - 2) * format.PageSize, Label: "big"})
	require.ErrorIs(t, err, ErrNoMemory)

	require.NoError(t, a.Region.Release())
	require.Zero(t, tl.PagesInUse())
}

func TestContextDestroyReleasesHeld(t *testing.T) {
	h := NewHeaps(Config{ContigBytes: 4 * format.PageSize})
	ctx := h.NewContext("test")

	a, err := ctx.Allocate(StrategyContig, Request{Length: format.PageSize, Label: "a"})
	require.NoError(t, err)
	_, err = ctx.Allocate(StrategyContig, Request{Length: format.PageSize, Label: "b"})
	require.NoError(t, err)
	require.Equal(t, 2, ctx.Outstanding())
	require.Equal(t, 2*format.PageSize, h.Contig().InUse())

	// A consumer keeps a alive past the context.
	require.NoError(t, a.Region.Retain())

	require.NoError(t, ctx.Destroy())
	require.NoError(t, ctx.Destroy())
	require.True(t, ctx.Closed())
	require.Equal(t, format.PageSize, h.Contig().InUse())
	require.Equal(t, 1, a.Region.Refs())

	_, err = ctx.Allocate(StrategySystem, Request{Length: 1})
	require.ErrorIs(t, err, ErrContextClosed)

	require.NoError(t, a.Region.Release())
	require.Zero(t, h.Contig().InUse())
}

func TestContextDropHandsOff(t *testing.T) {
	h := NewHeaps(Config{})
	ctx := h.NewContext("test")

	a, err := ctx.Allocate(StrategySystem, Request{Length: 1, Label: "a"})
	require.NoError(t, err)
	require.NoError(t, a.Region.Retain())
	require.NoError(t, ctx.Drop(a.Region))
	require.Equal(t, 1, a.Region.Refs())
	require.Zero(t, ctx.Outstanding())
	require.ErrorIs(t, ctx.Drop(a.Region), ErrReleased)
	require.NoError(t, a.Region.Release())
}

func TestHeapsOverride(t *testing.T) {
	fail := AllocatorFunc(func(Request) (Allocation, error) { return Allocation{}, ErrNoMemory })
	h := NewHeaps(Config{Overrides: map[Strategy]Allocator{StrategySystem: fail}})
	ctx := h.NewContext("test")

	_, err := ctx.Allocate(StrategySystem, Request{Length: 1})
	require.ErrorIs(t, err, ErrNoMemory)

	h.Register(StrategySystem, nil)
	_, err = ctx.Allocate(StrategySystem, Request{Length: 1})
	require.ErrorIs(t, err, ErrNoAllocator)

	h.Register(StrategySystem, NewSystem())
	a, err := ctx.Allocate(StrategySystem, Request{Length: 1})
	require.NoError(t, err)
	require.Equal(t, StrategySystem, a.Region.Strategy())
	require.NoError(t, ctx.Destroy())
}
