package backing

import (
	"errors"
	"fmt"
	"sync"
)

// Context is one allocation session against a Heaps set. It holds a
// reference on every region it allocated until the region is handed off with
// Drop or the context is destroyed.
type Context struct {
	heaps *Heaps
	label string

	mu     sync.Mutex
	held   map[*Region]struct{}
	closed bool
}

// NewContext opens an allocation context. label names the owner in errors.
func (h *Heaps) NewContext(label string) *Context {
	return &Context{heaps: h, label: label, held: make(map[*Region]struct{})}
}

// Label returns the context's owner label.
func (c *Context) Label() string { return c.label }

// Allocate serves req with the allocator registered for s. The context keeps
// the region's first reference.
func (c *Context) Allocate(s Strategy, req Request) (Allocation, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return Allocation{}, ErrContextClosed
	}

	a, err := c.heaps.allocator(s)
	if err != nil {
		return Allocation{}, err
	}
	alloc, err := a.Allocate(req)
	if err != nil {
		return Allocation{}, err
	}
	if alloc.Region == nil {
		return Allocation{}, fmt.Errorf("%w: %s allocator returned no region", ErrNoMemory, s)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = alloc.Region.Release()
		return Allocation{}, ErrContextClosed
	}
	c.held[alloc.Region] = struct{}{}
	c.mu.Unlock()
	return alloc, nil
}

// Drop gives up the context's reference on r. Once a consumer has retained
// r, Drop leaves that consumer as the only owner.
func (c *Context) Drop(r *Region) error {
	c.mu.Lock()
	if _, ok := c.held[r]; !ok {
		c.mu.Unlock()
		return ErrReleased
	}
	delete(c.held, r)
	c.mu.Unlock()
	return r.Release()
}

// Outstanding returns the number of regions the context still holds.
func (c *Context) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held)
}

// Closed reports whether Destroy has run.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Destroy releases every region the context still holds and refuses further
// allocations. Destroying twice is a no-op.
func (c *Context) Destroy() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	held := c.held
	c.held = nil
	c.mu.Unlock()

	var errs []error
	for r := range held {
		if err := r.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
