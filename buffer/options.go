package buffer

import (
	"log/slog"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/logger"
)

// DefaultMaxDescriptors is the default size of a session's descriptor table.
const DefaultMaxDescriptors = 1024

// Options configures a Manager.
type Options struct {
	// Logger receives allocation failures, name roll-over and shutdown
	// reports. If nil, logger.L is used.
	Logger *slog.Logger

	// ContigHeapBytes sizes the contiguous carve-out.
	// Default: backing.DefaultContigBytes (64 MiB)
	ContigHeapBytes int

	// TilerRows is the height of each 2D tiler container.
	// Default: backing.DefaultTilerRows (8192)
	TilerRows int

	// MaxDescriptors caps the descriptors one session may hold open.
	// Default: DefaultMaxDescriptors
	MaxDescriptors int

	// MaxName caps the buffer names handed out. Names roll over to 1 past it.
	// Default: names.MaxName
	MaxName names.Name

	// Allocators replaces the default allocator for individual strategies,
	// e.g. to inject failures or to hook up a real heap.
	Allocators map[backing.Strategy]backing.Allocator
}

// DefaultOptions returns the recommended options.
func DefaultOptions() Options {
	return Options{
		ContigHeapBytes: backing.DefaultContigBytes,
		TilerRows:       backing.DefaultTilerRows,
		MaxDescriptors:  DefaultMaxDescriptors,
		MaxName:         names.MaxName,
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.L
	}
	if o.ContigHeapBytes <= 0 {
		o.ContigHeapBytes = backing.DefaultContigBytes
	}
	if o.TilerRows <= 0 {
		o.TilerRows = backing.DefaultTilerRows
	}
	if o.MaxDescriptors <= 0 {
		o.MaxDescriptors = DefaultMaxDescriptors
	}
	if o.MaxName == 0 {
		o.MaxName = names.MaxName
	}
	return o
}
