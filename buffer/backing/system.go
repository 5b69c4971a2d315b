package backing

import (
	"fmt"

	"github.com/joshuapare/gfxbuf/internal/format"
	"github.com/joshuapare/gfxbuf/internal/mmfile"
)

// System allocates lazily-faulted shareable pages.
type System struct{}

// NewSystem returns the system heap.
func NewSystem() *System { return &System{} }

// Allocate implements Allocator.
func (s *System) Allocate(req Request) (Allocation, error) {
	if req.Length <= 0 {
		return Allocation{}, fmt.Errorf("%w: length %d", ErrBadRequest, req.Length)
	}
	size := regionSize(req.Length, req.Align)
	mem, err := mmfile.New(req.Label, size, mmfile.Options{WillNeed: req.Hints&HintCached != 0})
	if err != nil {
		return Allocation{}, fmt.Errorf("%w: system heap: %w", ErrNoMemory, err)
	}
	return Allocation{Region: NewRegion(StrategySystem, size, mem, req.Hints, nil)}, nil
}

// regionSize rounds a plane length up to whole pages and to align.
func regionSize(length, align int) int {
	size := format.AlignPage(length)
	if align > format.PageSize {
		size = format.Align(size, align)
	}
	return size
}
