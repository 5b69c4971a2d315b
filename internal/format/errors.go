package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnknownFlag indicates a flag name that ParseMemFlags does not recognize.
	ErrUnknownFlag = errors.New("format: unknown memory flag")
	// ErrTooManyPlanes indicates a block that claims more than MaxPlanes planes.
	ErrTooManyPlanes = errors.New("format: too many planes")
)
