// Package format houses the low-level data model shared by the buffer manager,
// its command protocol and its clients: plane capability flags, per-plane
// parameter blocks, request/info layouts and their fixed little-endian codecs.
// The binary layouts match the ioctl structures used by graphics clients so a
// request can be passed through the daemon byte-for-byte.
package format

const (
	// MaxPlanes is the number of plane slots carried by a request.
	MaxPlanes = 4

	// PageSize is the granularity of every resident backing region.
	PageSize = 4096

	// PageMask masks the in-page part of an offset.
	PageMask = PageSize - 1

	// NoDescriptor marks an export descriptor slot that holds nothing.
	NoDescriptor int32 = -1
)

// Hardware stride alignment hints published to clients.
const (
	DMM2DStrideBytesAlign = 4096 // Bytes
	DMM1DStrideBytesAlign = 128  // Bytes
	DSSStridePixelsAlign  = 8    // Pixels
	GPUStridePixelsAlign  = 8    // Pixels
	HW2DStridePixelsAlign = 8    // Pixels
	VideoStrideBytesAlign = 32   // Bytes
	ISSStrideBytesAlign   = 32   // Bytes
	YV12StridePixelsAlign = 32   // Pixels
)

// Wire sizes of the fixed layouts.
const (
	// ParamsSize is the encoded size of Params:
	//   0x00 u32 mem_flags
	//   0x04 u8  bpp
	//   0x05 u8  reserved[3]
	//   0x08 u16 width
	//   0x0A u16 height
	//   0x0C u16 stride_pixels
	//   0x0E u16 align_bytes
	//   0x10 u32 offset_bytes
	//   0x14 u32 size_bytes
	ParamsSize = 0x18

	// PlaneRequestSize is Params followed by an s32 export descriptor.
	PlaneRequestSize = ParamsSize + 4

	// RequestSize is the encoded size of Request:
	//   0x00 u32 pixel_format
	//   0x04 u32 flags (bit 0: export planes)
	//   0x08 u64 name
	//   0x10 s32 descriptor
	//   0x14 u32 num_planes
	//   0x18 PlaneRequest[MaxPlanes]
	RequestSize = 0x18 + MaxPlanes*PlaneRequestSize

	// InfoSize is the encoded size of Info:
	//   0x00 u32 pixel_format
	//   0x04 u32 num_planes
	//   0x08 u64 name
	//   0x10 Params[MaxPlanes]
	InfoSize = 0x10 + MaxPlanes*ParamsSize
)

const (
	paramsFlagsOffset  = 0x00
	paramsBPPOffset    = 0x04
	paramsWidthOffset  = 0x08
	paramsHeightOffset = 0x0A
	paramsStrideOffset = 0x0C
	paramsAlignOffset  = 0x0E
	paramsOffsetOffset = 0x10
	paramsSizeOffset   = 0x14

	reqFormatOffset     = 0x00
	reqFlagsOffset      = 0x04
	reqNameOffset       = 0x08
	reqDescriptorOffset = 0x10
	reqNumPlanesOffset  = 0x14
	reqPlanesOffset     = 0x18

	infoFormatOffset    = 0x00
	infoNumPlanesOffset = 0x04
	infoNameOffset      = 0x08
	infoPlanesOffset    = 0x10

	reqFlagExportPlanes = 1 << 0
)
