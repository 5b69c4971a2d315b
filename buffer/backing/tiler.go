package backing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joshuapare/gfxbuf/internal/format"
	"github.com/joshuapare/gfxbuf/internal/mmfile"
)

// TilerMode is a tiler container view.
type TilerMode uint8

const (
	TilerPage TilerMode = iota
	Tiler8
	Tiler16
	Tiler32
)

func (m TilerMode) String() string {
	switch m {
	case TilerPage:
		return "page"
	case Tiler8:
		return "8bit"
	case Tiler16:
		return "16bit"
	case Tiler32:
		return "32bit"
	}
	return "unknown"
}

// TilerModeFor picks the container view for a tiler plane. PAGE wins over
// the 2D modes, and narrower elements win over wider ones.
func TilerModeFor(f format.MemFlags) TilerMode {
	switch {
	case f.Any(format.MemTilerPage):
		return TilerPage
	case f.Any(format.MemTiler8):
		return Tiler8
	case f.Any(format.MemTiler16):
		return Tiler16
	default:
		return Tiler32
	}
}

// Container geometry.
const (
	// Tiler8Stride is the row pitch of the 8-bit container view.
	Tiler8Stride = 16 << 10
	// Tiler16Stride is the row pitch of the 16- and 32-bit container views.
	Tiler16Stride = 32 << 10

	// DefaultTilerRows is the height of every 2D container.
	DefaultTilerRows = 8192

	// tilerBandRows is the row granularity of a placement band.
	tilerBandRows = 32
)

// elementSize returns the container element width in bytes.
func (m TilerMode) elementSize() int {
	switch m {
	case Tiler16:
		return 2
	case Tiler32:
		return 4
	}
	return 1
}

func (m TilerMode) stride() int {
	if m == Tiler8 {
		return Tiler8Stride
	}
	return Tiler16Stride
}

// Tiler places planes in tiled 2D containers (one per element size) or in
// the 1D page pool.
//
// A 2D area is placed in a horizontal band of rows. Areas in a band sit side
// by side, each starting on a 128-byte boundary, so an area's start is
// generally not page aligned: that in-page offset, together with the
// container stride, is reported back as the plane's final geometry.
type Tiler struct {
	mu        sync.Mutex
	views     map[TilerMode]*tilerView
	pageLimit int
	pagesUsed int
}

type tilerView struct {
	stride int
	rows   int
	top    int // first row above every band
	bands  []*tilerBand
}

type tilerBand struct {
	y, h int
	x    int // next free byte column
	live int
}

// NewTiler returns a tiler whose 2D containers are rows high (DefaultTilerRows
// when <= 0). The page pool holds as many pages as one 32-bit container.
func NewTiler(rows int) *Tiler {
	if rows <= 0 {
		rows = DefaultTilerRows
	}
	t := &Tiler{views: make(map[TilerMode]*tilerView, 3)}
	for _, m := range []TilerMode{Tiler8, Tiler16, Tiler32} {
		t.views[m] = &tilerView{stride: m.stride(), rows: rows}
	}
	t.pageLimit = rows * Tiler16Stride / format.PageSize
	return t
}

// Allocate implements Allocator.
func (t *Tiler) Allocate(req Request) (Allocation, error) {
	mode := TilerModeFor(req.Flags)
	if mode == TilerPage {
		return t.allocatePage(req)
	}
	return t.allocate2D(mode, req)
}

// PagesInUse returns the pages held by 1D allocations.
func (t *Tiler) PagesInUse() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pagesUsed
}

// RowsInUse returns the rows claimed by bands of the given 2D view.
func (t *Tiler) RowsInUse(m TilerMode) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.views[m]; ok {
		return v.top
	}
	return 0
}

// allocatePage serves TILER_PAGE planes: the plane is treated as len x 1,
// keeps the caller's stride and starts on a page.
func (t *Tiler) allocatePage(req Request) (Allocation, error) {
	if req.Length <= 0 {
		return Allocation{}, fmt.Errorf("%w: length %d", ErrBadRequest, req.Length)
	}
	size := regionSize(req.Length, req.Align)
	pages := size / format.PageSize

	t.mu.Lock()
	if t.pagesUsed+pages > t.pageLimit {
		t.mu.Unlock()
		return Allocation{}, fmt.Errorf("%w: tiler page pool: need %d pages, %d free", ErrNoMemory, pages, t.pageLimit-t.pagesUsed)
	}
	t.pagesUsed += pages
	t.mu.Unlock()

	mem, err := mmfile.New(req.Label, size, mmfile.Options{})
	if err != nil {
		t.releasePages(pages)
		return Allocation{}, fmt.Errorf("%w: tiler page pool: %w", ErrNoMemory, err)
	}
	free := func() error {
		t.releasePages(pages)
		return nil
	}
	return Allocation{Region: NewRegion(StrategyTiler, size, mem, req.Hints, free)}, nil
}

func (t *Tiler) releasePages(n int) {
	t.mu.Lock()
	t.pagesUsed -= n
	t.mu.Unlock()
}

// allocate2D places a width x height area in the mode's container.
// Cache hints are ignored by the 2D views.
func (t *Tiler) allocate2D(mode TilerMode, req Request) (Allocation, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return Allocation{}, fmt.Errorf("%w: %dx%d area", ErrBadRequest, req.Width, req.Height)
	}
	widthBytes := req.Width * mode.elementSize()

	t.mu.Lock()
	v := t.views[mode]
	b, x, err := v.place(widthBytes, req.Height)
	t.mu.Unlock()
	if err != nil {
		return Allocation{}, fmt.Errorf("%w: tiler %s: %w", ErrNoMemory, mode, err)
	}

	stridePixels := v.stride / format.BytesPerPixel(req.BPP)
	size := regionSize(max(v.stride*req.Height, format.PlaneLength(stridePixels, req.BPP, req.Height)), req.Align)
	mem, err := mmfile.New(req.Label, size, mmfile.Options{})
	if err != nil {
		t.unplace(v, b)
		return Allocation{}, fmt.Errorf("%w: tiler %s: %w", ErrNoMemory, mode, err)
	}
	free := func() error {
		t.unplace(v, b)
		return nil
	}
	return Allocation{
		Region:       NewRegion(StrategyTiler, size, mem, req.Hints&^HintCached, free),
		StridePixels: stridePixels,
		OffsetBytes:  uint32(x & format.PageMask),
	}, nil
}

func (t *Tiler) unplace(v *tilerView, b *tilerBand) {
	t.mu.Lock()
	v.remove(b)
	t.mu.Unlock()
}

var (
	errAreaTooWide = errors.New("area wider than container")
	errNoRows      = errors.New("container full")
)

// place finds room for a widthBytes x height area and returns its band and
// starting byte column.
func (v *tilerView) place(widthBytes, height int) (*tilerBand, int, error) {
	if widthBytes > v.stride {
		return nil, 0, errAreaTooWide
	}
	h := format.Align(height, tilerBandRows)

	var target *tilerBand
	for _, b := range v.bands {
		if b.h == h && b.x+widthBytes <= v.stride {
			target = b
			break
		}
	}
	if target == nil {
		for _, b := range v.bands {
			if b.live == 0 && b.h >= h {
				b.x = 0
				target = b
				break
			}
		}
	}
	if target == nil {
		if v.top+h > v.rows {
			return nil, 0, errNoRows
		}
		target = &tilerBand{y: v.top, h: h}
		v.bands = append(v.bands, target)
		v.top += h
	}

	x := target.x
	target.x = format.Align(x+widthBytes, format.DMM1DStrideBytesAlign)
	target.live++
	return target, x, nil
}

// remove drops one area from b. Empty bands become reusable, and empty
// bands at the top of the container give their rows back.
func (v *tilerView) remove(b *tilerBand) {
	b.live--
	if b.live > 0 {
		return
	}
	b.x = 0
	for n := len(v.bands); n > 0; n-- {
		last := v.bands[n-1]
		if last.live > 0 {
			break
		}
		v.top = last.y
		v.bands = v.bands[:n-1]
	}
}
