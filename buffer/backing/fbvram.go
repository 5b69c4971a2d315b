package backing

import "fmt"

// FBVRAM stands in for the framebuffer carve-out. It hands out placeholder
// regions of the requested length with no memory behind them.
type FBVRAM struct{}

// NewFBVRAM returns the placeholder framebuffer allocator.
func NewFBVRAM() *FBVRAM { return &FBVRAM{} }

// Allocate implements Allocator.
func (FBVRAM) Allocate(req Request) (Allocation, error) {
	if req.Length <= 0 {
		return Allocation{}, fmt.Errorf("%w: length %d", ErrBadRequest, req.Length)
	}
	return Allocation{Region: NewRegion(StrategyFBVRAM, req.Length, nil, req.Hints, nil)}, nil
}
