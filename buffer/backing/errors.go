package backing

import "errors"

var (
	// ErrNoMemory indicates the strategy could not satisfy the request.
	ErrNoMemory = errors.New("backing: out of memory")
	// ErrNoAllocator indicates no allocator is registered for a strategy.
	ErrNoAllocator = errors.New("backing: no allocator for strategy")
	// ErrContextClosed indicates use of a destroyed allocation context.
	ErrContextClosed = errors.New("backing: allocation context closed")
	// ErrReleased indicates a reference operation on a freed region.
	ErrReleased = errors.New("backing: region already released")
	// ErrNotResident indicates a placeholder region with no memory behind it.
	ErrNotResident = errors.New("backing: region has no resident memory")
	// ErrBadRequest indicates a request the strategy cannot express.
	ErrBadRequest = errors.New("backing: bad request")
)
