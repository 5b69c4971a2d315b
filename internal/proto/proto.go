// Package proto implements the framed command protocol spoken between the
// buffer manager daemon and its clients.
//
// Every frame is
//
//	u32 length | u16 magic 0x4F | u16 kind | payload[length]
//
// where kind is a Command on requests and a status code on responses.
// Integers are little-endian. Request and response payloads reuse the fixed
// layouts of package format. Plane descriptors returned by CREATE ride as
// SCM_RIGHTS ancillary data on the response frame.
package proto

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/gfxbuf/internal/format"
)

// Magic tags every frame.
const Magic uint16 = 0x4F

// HeaderSize is the size of the frame header.
const HeaderSize = 8

// MaxPayload bounds a frame payload. Dump reports are the largest frames.
const MaxPayload = 16 << 20

// Command is a request kind.
type Command uint16

const (
	CmdCreate    Command = 1 // format.Request -> format.Request + plane fds
	CmdGetParams Command = 2 // name -> format.Info
	CmdSync      Command = 3 // fd, timeout_ms -> status only
	CmdClose     Command = 4 // fd -> empty
	CmdDup       Command = 5 // fd -> fd
	CmdDump      Command = 6 // [mode] -> text or JSON report
)

func (c Command) String() string {
	switch c {
	case CmdCreate:
		return "CREATE"
	case CmdGetParams:
		return "GET_PARAMS"
	case CmdSync:
		return "SYNC"
	case CmdClose:
		return "CLOSE"
	case CmdDup:
		return "DUP"
	case CmdDump:
		return "DUMP"
	}
	return fmt.Sprintf("Command(%d)", uint16(c))
}

var (
	// ErrBadMagic indicates a frame that does not start with Magic.
	ErrBadMagic = errors.New("proto: bad frame magic")
	// ErrTooLarge indicates a payload above MaxPayload.
	ErrTooLarge = errors.New("proto: frame payload too large")
	// ErrShortPayload indicates a payload smaller than its command needs.
	ErrShortPayload = errors.New("proto: short payload")
)

// Frame is one decoded frame.
type Frame struct {
	Kind    uint16
	Payload []byte
}

// AppendFrame appends an encoded frame to dst.
func AppendFrame(dst []byte, kind uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	var hdr [HeaderSize]byte
	format.PutU32(hdr[:], 0, uint32(len(payload)))
	format.PutU16(hdr[:], 4, Magic)
	format.PutU16(hdr[:], 6, kind)
	dst = append(dst, hdr[:]...)
	return append(dst, payload...), nil
}

// ParseHeader decodes a frame header and returns the kind and payload length.
func ParseHeader(hdr []byte) (kind uint16, n int, err error) {
	if len(hdr) < HeaderSize {
		return 0, 0, io.ErrUnexpectedEOF
	}
	if m := format.ReadU16(hdr, 4); m != Magic {
		return 0, 0, fmt.Errorf("%w: 0x%04x", ErrBadMagic, m)
	}
	n = int(format.ReadU32(hdr, 0))
	if n > MaxPayload {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	return format.ReadU16(hdr, 6), n, nil
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, kind uint16, payload []byte) error {
	b, err := AppendFrame(nil, kind, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	return ReadPayload(r, hdr[:])
}

// ReadPayload reads the payload announced by an already-read header.
func ReadPayload(r io.Reader, hdr []byte) (Frame, error) {
	kind, n, err := ParseHeader(hdr)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Kind: kind, Payload: make([]byte, n)}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return f, nil
}
