package backing

import "github.com/joshuapare/gfxbuf/internal/format"

// Strategy identifies a backing allocation strategy.
type Strategy uint8

const (
	StrategySystem Strategy = iota
	StrategyContig
	StrategyTiler
	StrategyFBVRAM
)

var strategyNames = [...]string{
	StrategySystem: "system",
	StrategyContig: "contig",
	StrategyTiler:  "tiler",
	StrategyFBVRAM: "fb_vram",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Classify selects the strategy for a plane's flags.
func Classify(f format.MemFlags) Strategy {
	switch {
	case f.Any(format.MemFBVRAM):
		return StrategyFBVRAM
	case f.Any(format.MemTiler):
		return StrategyTiler
	case f.Any(format.MemContig):
		return StrategyContig
	default:
		return StrategySystem
	}
}

// Hints are cache-related allocation hints derived from the plane flags.
type Hints uint8

const (
	// HintCached asks for CPU-cached memory.
	HintCached Hints = 1 << iota
	// HintNeedsSync marks memory that is not pageable and must be synced
	// explicitly before another agent reads it.
	HintNeedsSync
	// HintZeroInit asks for zero-filled memory.
	HintZeroInit
)

// HintsFor derives allocation hints from plane flags.
func HintsFor(f format.MemFlags) Hints {
	var h Hints
	if f.Any(format.MemCached) {
		h |= HintCached
	}
	if !f.Any(format.MemMapPageable) {
		h |= HintNeedsSync
	}
	if f.Any(format.MemZeroInit) {
		h |= HintZeroInit
	}
	return h
}

// Request describes one backing allocation.
type Request struct {
	Flags        format.MemFlags
	Length       int // bytes, already rounded to Align
	Align        int // bytes, power of two
	Width        int // pixels
	Height       int // rows
	BPP          int // bits per pixel
	StridePixels int // requested stride
	Hints        Hints
	Label        string // debug name of the region
}

// Allocation is the result of a backing allocation. A non-zero StridePixels
// replaces the requested stride; OffsetBytes is the plane's offset into its
// first page.
type Allocation struct {
	Region       *Region
	StridePixels int
	OffsetBytes  uint32
}

// Allocator is one backing strategy.
type Allocator interface {
	Allocate(req Request) (Allocation, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(req Request) (Allocation, error)

// Allocate calls f(req).
func (f AllocatorFunc) Allocate(req Request) (Allocation, error) { return f(req) }
