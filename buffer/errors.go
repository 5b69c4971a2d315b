package buffer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a request with no valid plane or with
	// malformed plane geometry.
	ErrInvalidArgument = errors.New("buffer: invalid argument")

	// ErrOutOfMemory indicates the manager could not get memory for a buffer.
	ErrOutOfMemory = errors.New("buffer: out of memory")

	// ErrBackendAllocationFailed indicates a backing strategy could not satisfy
	// a plane. It matches ErrOutOfMemory with errors.Is.
	ErrBackendAllocationFailed = fmt.Errorf("%w: backend allocation failed", ErrOutOfMemory)

	// ErrInvalidHandle indicates an unknown descriptor, a descriptor of the
	// wrong type, a handle already put, or a double release.
	ErrInvalidHandle = errors.New("buffer: invalid handle")

	// ErrNotFound indicates no live buffer has the given name.
	ErrNotFound = errors.New("buffer: not found")

	// ErrDescriptorTableExhausted indicates a session has no free descriptor.
	ErrDescriptorTableExhausted = errors.New("buffer: descriptor table exhausted")

	// ErrNotSupported indicates an operation the manager does not implement.
	ErrNotSupported = errors.New("buffer: not supported")

	// ErrSessionClosed indicates use of a closed session.
	ErrSessionClosed = errors.New("buffer: session closed")

	// ErrShutdown indicates use of a manager after Shutdown.
	ErrShutdown = errors.New("buffer: manager shut down")

	// ErrInternal indicates a failure the caller cannot act on.
	ErrInternal = errors.New("buffer: internal error")
)

// Code is the wire form of an error kind.
type Code uint16

const (
	CodeOK Code = iota
	CodeInvalidArgument
	CodeOutOfMemory
	CodeBackendAllocationFailed
	CodeInvalidHandle
	CodeNotFound
	CodeDescriptorTableExhausted
	CodeNotSupported
	CodeSessionClosed
	CodeShutdown
	CodeInternal
)

// codeErrors is ordered so that ErrBackendAllocationFailed is tried before
// the ErrOutOfMemory it wraps.
var codeErrors = []struct {
	code Code
	err  error
}{
	{CodeInvalidArgument, ErrInvalidArgument},
	{CodeBackendAllocationFailed, ErrBackendAllocationFailed},
	{CodeOutOfMemory, ErrOutOfMemory},
	{CodeInvalidHandle, ErrInvalidHandle},
	{CodeNotFound, ErrNotFound},
	{CodeDescriptorTableExhausted, ErrDescriptorTableExhausted},
	{CodeNotSupported, ErrNotSupported},
	{CodeSessionClosed, ErrSessionClosed},
	{CodeShutdown, ErrShutdown},
	{CodeInternal, ErrInternal},
}

// CodeOf maps err to its wire code. Errors of no known kind map to
// CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeInternal
}

// Err returns the sentinel error for c, or nil for CodeOK.
func (c Code) Err() error {
	if c == CodeOK {
		return nil
	}
	for _, ce := range codeErrors {
		if ce.code == c {
			return ce.err
		}
	}
	return fmt.Errorf("%w: status %d", ErrInternal, uint16(c))
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeBackendAllocationFailed:
		return "backend allocation failed"
	case CodeInvalidHandle:
		return "invalid handle"
	case CodeNotFound:
		return "not found"
	case CodeDescriptorTableExhausted:
		return "descriptor table exhausted"
	case CodeNotSupported:
		return "not supported"
	case CodeSessionClosed:
		return "session closed"
	case CodeShutdown:
		return "shut down"
	case CodeInternal:
		return "internal error"
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}
