package backing

import (
	"fmt"
	"sync"
)

// Config sizes the default heaps.
type Config struct {
	ContigBytes int // contiguous carve-out, DefaultContigBytes when <= 0
	TilerRows   int // 2D container height, DefaultTilerRows when <= 0

	// Overrides replaces the default allocator for a strategy.
	Overrides map[Strategy]Allocator
}

// Heaps is the set of allocators the manager draws from, one per strategy.
type Heaps struct {
	mu         sync.RWMutex
	allocators map[Strategy]Allocator

	contig *Contig
	tiler  *Tiler
}

// NewHeaps builds the default strategy set and applies cfg.Overrides.
func NewHeaps(cfg Config) *Heaps {
	h := &Heaps{
		contig: NewContig(cfg.ContigBytes),
		tiler:  NewTiler(cfg.TilerRows),
	}
	h.allocators = map[Strategy]Allocator{
		StrategySystem: NewSystem(),
		StrategyContig: h.contig,
		StrategyTiler:  h.tiler,
		StrategyFBVRAM: NewFBVRAM(),
	}
	for s, a := range cfg.Overrides {
		h.allocators[s] = a
	}
	return h
}

// Register replaces the allocator for s. A nil allocator removes it.
func (h *Heaps) Register(s Strategy, a Allocator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if a == nil {
		delete(h.allocators, s)
		return
	}
	h.allocators[s] = a
}

// Contig returns the default contiguous heap.
func (h *Heaps) Contig() *Contig { return h.contig }

// Tiler returns the default tiler.
func (h *Heaps) Tiler() *Tiler { return h.tiler }

func (h *Heaps) allocator(s Strategy) (Allocator, error) {
	h.mu.RLock()
	a, ok := h.allocators[s]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAllocator, s)
	}
	return a, nil
}
