package proto

import (
	"fmt"
	"time"

	"github.com/joshuapare/gfxbuf/internal/format"
)

// Small fixed payloads.
const (
	NameSize = 4 // u32 name
	FDSize   = 4 // s32 descriptor
	SyncSize = 8 // s32 descriptor | u32 timeout_ms
)

// EncodeName encodes a GET_PARAMS payload.
func EncodeName(name uint32) []byte {
	b := make([]byte, NameSize)
	format.PutU32(b, 0, name)
	return b
}

// DecodeName decodes a GET_PARAMS payload.
func DecodeName(b []byte) (uint32, error) {
	if len(b) < NameSize {
		return 0, fmt.Errorf("%w: name needs %d bytes, have %d", ErrShortPayload, NameSize, len(b))
	}
	return format.ReadU32(b, 0), nil
}

// EncodeFD encodes a CLOSE or DUP payload, or a DUP response.
func EncodeFD(fd int32) []byte {
	b := make([]byte, FDSize)
	format.PutI32(b, 0, fd)
	return b
}

// DecodeFD decodes a descriptor payload.
func DecodeFD(b []byte) (int32, error) {
	if len(b) < FDSize {
		return 0, fmt.Errorf("%w: fd needs %d bytes, have %d", ErrShortPayload, FDSize, len(b))
	}
	return format.ReadI32(b, 0), nil
}

// EncodeSync encodes a SYNC payload. The timeout is sent in whole
// milliseconds.
func EncodeSync(fd int32, timeout time.Duration) []byte {
	b := make([]byte, SyncSize)
	format.PutI32(b, 0, fd)
	format.PutU32(b, 4, uint32(timeout/time.Millisecond))
	return b
}

// DecodeSync decodes a SYNC payload.
func DecodeSync(b []byte) (int32, time.Duration, error) {
	if len(b) < SyncSize {
		return 0, 0, fmt.Errorf("%w: sync needs %d bytes, have %d", ErrShortPayload, SyncSize, len(b))
	}
	return format.ReadI32(b, 0), time.Duration(format.ReadU32(b, 4)) * time.Millisecond, nil
}

// DUMP request payloads. An empty payload asks for the text report.
const (
	DumpText byte = 0
	DumpJSON byte = 1
)

// DumpWantsJSON reports whether a DUMP payload asks for the JSON report.
func DumpWantsJSON(b []byte) bool { return len(b) > 0 && b[0] == DumpJSON }
