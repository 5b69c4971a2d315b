package backing

import (
	"fmt"
	"sync"

	"github.com/joshuapare/gfxbuf/internal/mmfile"
)

// DefaultContigBytes is the default contiguous carve-out size.
const DefaultContigBytes = 64 << 20

// Contig allocates pre-faulted pages from a bounded carve-out.
type Contig struct {
	mu    sync.Mutex
	limit int
	inUse int
}

// NewContig returns a contiguous heap of limit bytes (DefaultContigBytes when <= 0).
func NewContig(limit int) *Contig {
	if limit <= 0 {
		limit = DefaultContigBytes
	}
	return &Contig{limit: limit}
}

// InUse returns the bytes currently allocated.
func (c *Contig) InUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

// Limit returns the carve-out size.
func (c *Contig) Limit() int { return c.limit }

// Allocate implements Allocator.
func (c *Contig) Allocate(req Request) (Allocation, error) {
	if req.Length <= 0 {
		return Allocation{}, fmt.Errorf("%w: length %d", ErrBadRequest, req.Length)
	}
	size := regionSize(req.Length, req.Align)

	c.mu.Lock()
	if c.inUse+size > c.limit {
		free := c.limit - c.inUse
		c.mu.Unlock()
		return Allocation{}, fmt.Errorf("%w: contig heap: need %d bytes, %d free", ErrNoMemory, size, free)
	}
	c.inUse += size
	c.mu.Unlock()

	mem, err := mmfile.New(req.Label, size, mmfile.Options{Populate: true})
	if err != nil {
		c.unreserve(size)
		return Allocation{}, fmt.Errorf("%w: contig heap: %w", ErrNoMemory, err)
	}
	free := func() error {
		c.unreserve(size)
		return nil
	}
	return Allocation{Region: NewRegion(StrategyContig, size, mem, req.Hints, free)}, nil
}

func (c *Contig) unreserve(size int) {
	c.mu.Lock()
	c.inUse -= size
	c.mu.Unlock()
}
