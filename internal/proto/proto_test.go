package proto

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gfxbuf/internal/format"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, uint16(CmdGetParams), EncodeName(7)))
	require.NoError(t, WriteFrame(&buf, uint16(CmdDump), nil))
	require.Equal(t, []byte{4, 0, 0, 0, 0x4F, 0, 2, 0, 7, 0, 0, 0}, buf.Bytes()[:12])

	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, uint16(CmdGetParams), f.Kind)
	name, err := DecodeName(f.Payload)
	require.NoError(t, err)
	require.Equal(t, uint32(7), name)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, uint16(CmdDump), f.Kind)
	require.Empty(t, f.Payload)

	_, err = ReadFrame(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameRejectsBadInput(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0, 0x50, 0, 1, 0}))
	require.ErrorIs(t, err, ErrBadMagic)

	huge := []byte{0, 0, 0, 0x7F, 0x4F, 0, 1, 0}
	_, err = ReadFrame(bytes.NewReader(huge))
	require.ErrorIs(t, err, ErrTooLarge)

	short := []byte{8, 0, 0, 0, 0x4F, 0, 1, 0, 1, 2}
	_, err = ReadFrame(bytes.NewReader(short))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = AppendFrame(nil, 1, make([]byte, MaxPayload+1))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestPayloads(t *testing.T) {
	fd, err := DecodeFD(EncodeFD(-1))
	require.NoError(t, err)
	require.Equal(t, int32(-1), fd)

	fd, timeout, err := DecodeSync(EncodeSync(3, 1500*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, int32(3), fd)
	require.Equal(t, 1500*time.Millisecond, timeout)

	_, err = DecodeFD([]byte{1})
	require.ErrorIs(t, err, ErrShortPayload)
	_, _, err = DecodeSync([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrShortPayload)
	_, err = DecodeName(nil)
	require.ErrorIs(t, err, ErrShortPayload)

	require.False(t, DumpWantsJSON(nil))
	require.False(t, DumpWantsJSON([]byte{DumpText}))
	require.True(t, DumpWantsJSON([]byte{DumpJSON}))
}

func TestCreatePayloadCarriesRequest(t *testing.T) {
	req := format.Request{PixelFormat: 0x3231564E, ExportPlanes: true}
	req.Planes[0].Params = format.Params{Flags: format.MemTiler8, BPP: 8, Width: 1920, Height: 1080, StridePixels: 1920}
	req.Planes[1].Params = format.Params{Flags: format.MemTiler16, BPP: 16, Width: 960, Height: 540, StridePixels: 960}
	b, err := req.MarshalBinary()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, uint16(CmdCreate), b))
	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Len(t, f.Payload, format.RequestSize)

	var got format.Request
	require.NoError(t, got.UnmarshalBinary(f.Payload))
	require.Equal(t, req, got)
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "CREATE", CmdCreate.String())
	require.Equal(t, "DUMP", CmdDump.String())
	require.Equal(t, "Command(99)", Command(99).String())
}
