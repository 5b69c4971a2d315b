package format

import "fmt"

// Params describes one plane: its capability flags and its geometry.
// On a request only Flags, BPP, Width, Height, StridePixels and AlignBytes
// are inputs; OffsetBytes and SizeBytes (and possibly StridePixels) are
// filled in by the allocator.
type Params struct {
	Flags        MemFlags // Memory descriptor flags
	BPP          uint8    // Bits per pixel
	Width        uint16   // Width in pixels
	Height       uint16   // Height in pixels
	StridePixels uint16   // Stride in pixels
	AlignBytes   uint16   // Buffer alignment in bytes
	OffsetBytes  uint32   // Buffer offset in bytes
	SizeBytes    uint32   // Buffer size in bytes
}

// PlaneRequest is a single plane slot of a Request.
type PlaneRequest struct {
	Params

	// ExportFd carries the plane's own export descriptor on the way out,
	// or NoDescriptor.
	ExportFd int32
}

// Request is a buffer creation request and, once served, its response.
//
// IN:  PixelFormat, ExportPlanes, Planes[i].Params (inputs).
// OUT: Name, Descriptor, NumPlanes, Planes[i].Params (final), Planes[i].ExportFd.
type Request struct {
	PixelFormat  uint32
	ExportPlanes bool
	Name         uint64
	Descriptor   int32
	NumPlanes    uint32
	Planes       [MaxPlanes]PlaneRequest
}

// Info is the parameter block returned by a get-parameters call.
type Info struct {
	PixelFormat uint32
	Name        uint64
	NumPlanes   uint32
	Planes      [MaxPlanes]Params
}

// ValidPlanes counts the leading plane slots with non-zero flags. Scanning
// stops at the first empty slot; anything after it is ignored.
func (r *Request) ValidPlanes() int {
	n := 0
	for n < MaxPlanes && r.Planes[n].Flags != 0 {
		n++
	}
	return n
}

// ResetOutputs clears every output field so a failed call never leaks
// descriptors or names from a previous use of the same Request.
func (r *Request) ResetOutputs() {
	r.Name = 0
	r.Descriptor = NoDescriptor
	for i := range r.Planes {
		r.Planes[i].ExportFd = NoDescriptor
	}
}

// PlaneParams returns the populated plane parameters.
func (i *Info) PlaneParams() []Params {
	n := int(i.NumPlanes)
	if n > MaxPlanes {
		n = MaxPlanes
	}
	return i.Planes[:n]
}

// String renders the geometry the way the debug report does.
func (p Params) String() string {
	return fmt.Sprintf("size: %d, (w %d x h %d) @ %d bpp, flags 0x%08x, stride %d pixels, offset %d bytes, alignment %d bytes",
		p.SizeBytes, p.Width, p.Height, p.BPP, uint32(p.Flags), p.StridePixels, p.OffsetBytes, p.AlignBytes)
}

// EncodeParams writes p into b[0:ParamsSize].
func EncodeParams(b []byte, p Params) {
	PutU32(b, paramsFlagsOffset, uint32(p.Flags))
	b[paramsBPPOffset] = p.BPP
	b[paramsBPPOffset+1], b[paramsBPPOffset+2], b[paramsBPPOffset+3] = 0, 0, 0
	PutU16(b, paramsWidthOffset, p.Width)
	PutU16(b, paramsHeightOffset, p.Height)
	PutU16(b, paramsStrideOffset, p.StridePixels)
	PutU16(b, paramsAlignOffset, p.AlignBytes)
	PutU32(b, paramsOffsetOffset, p.OffsetBytes)
	PutU32(b, paramsSizeOffset, p.SizeBytes)
}

// DecodeParams reads a Params from the start of b.
func DecodeParams(b []byte) (Params, error) {
	if len(b) < ParamsSize {
		return Params{}, fmt.Errorf("%w: params need %d bytes, have %d", ErrTruncated, ParamsSize, len(b))
	}
	return Params{
		Flags:        MemFlags(ReadU32(b, paramsFlagsOffset)),
		BPP:          b[paramsBPPOffset],
		Width:        ReadU16(b, paramsWidthOffset),
		Height:       ReadU16(b, paramsHeightOffset),
		StridePixels: ReadU16(b, paramsStrideOffset),
		AlignBytes:   ReadU16(b, paramsAlignOffset),
		OffsetBytes:  ReadU32(b, paramsOffsetOffset),
		SizeBytes:    ReadU32(b, paramsSizeOffset),
	}, nil
}

// MarshalBinary encodes the request into its RequestSize layout.
func (r *Request) MarshalBinary() ([]byte, error) {
	b := make([]byte, RequestSize)
	PutU32(b, reqFormatOffset, r.PixelFormat)
	var flags uint32
	if r.ExportPlanes {
		flags |= reqFlagExportPlanes
	}
	PutU32(b, reqFlagsOffset, flags)
	PutU64(b, reqNameOffset, r.Name)
	PutI32(b, reqDescriptorOffset, r.Descriptor)
	PutU32(b, reqNumPlanesOffset, r.NumPlanes)
	for i := range r.Planes {
		off := reqPlanesOffset + i*PlaneRequestSize
		EncodeParams(b[off:], r.Planes[i].Params)
		PutI32(b, off+ParamsSize, r.Planes[i].ExportFd)
	}
	return b, nil
}

// UnmarshalBinary decodes a request from its RequestSize layout.
func (r *Request) UnmarshalBinary(b []byte) error {
	if len(b) < RequestSize {
		return fmt.Errorf("%w: request needs %d bytes, have %d", ErrTruncated, RequestSize, len(b))
	}
	r.PixelFormat = ReadU32(b, reqFormatOffset)
	r.ExportPlanes = ReadU32(b, reqFlagsOffset)&reqFlagExportPlanes != 0
	r.Name = ReadU64(b, reqNameOffset)
	r.Descriptor = ReadI32(b, reqDescriptorOffset)
	r.NumPlanes = ReadU32(b, reqNumPlanesOffset)
	if r.NumPlanes > MaxPlanes {
		return fmt.Errorf("%w: %d", ErrTooManyPlanes, r.NumPlanes)
	}
	for i := range r.Planes {
		off := reqPlanesOffset + i*PlaneRequestSize
		p, err := DecodeParams(b[off:])
		if err != nil {
			return err
		}
		r.Planes[i].Params = p
		r.Planes[i].ExportFd = ReadI32(b, off+ParamsSize)
	}
	return nil
}

// MarshalBinary encodes the info block into its InfoSize layout.
func (i *Info) MarshalBinary() ([]byte, error) {
	b := make([]byte, InfoSize)
	PutU32(b, infoFormatOffset, i.PixelFormat)
	PutU32(b, infoNumPlanesOffset, i.NumPlanes)
	PutU64(b, infoNameOffset, i.Name)
	for n := range i.Planes {
		EncodeParams(b[infoPlanesOffset+n*ParamsSize:], i.Planes[n])
	}
	return b, nil
}

// UnmarshalBinary decodes an info block from its InfoSize layout.
func (i *Info) UnmarshalBinary(b []byte) error {
	if len(b) < InfoSize {
		return fmt.Errorf("%w: info needs %d bytes, have %d", ErrTruncated, InfoSize, len(b))
	}
	i.PixelFormat = ReadU32(b, infoFormatOffset)
	i.NumPlanes = ReadU32(b, infoNumPlanesOffset)
	if i.NumPlanes > MaxPlanes {
		return fmt.Errorf("%w: %d", ErrTooManyPlanes, i.NumPlanes)
	}
	i.Name = ReadU64(b, infoNameOffset)
	for n := range i.Planes {
		p, err := DecodeParams(b[infoPlanesOffset+n*ParamsSize:])
		if err != nil {
			return err
		}
		i.Planes[n] = p
	}
	return nil
}
