// Package gfxbuf is the client side of the buffer manager daemon.
//
// A client connects with Dial, creates buffers with Create and receives the
// memory of each exported plane as an open *os.File that it can mmap or hand
// to another process. Buffer names are global; descriptors returned by the
// daemon are per connection and die with it.
//
// Example:
//
//	c, err := gfxbuf.Dial(gfxbuf.DefaultSocket)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	req := gfxbuf.NewRequest(0x3231564E, true,
//	    gfxbuf.Plane(gfxbuf.MemTiler8, 8, 1920, 1080),
//	    gfxbuf.Plane(gfxbuf.MemTiler16, 16, 960, 540))
//	files, err := c.Create(req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	info, _ := c.GetParams(uint32(req.Name))
package gfxbuf

import (
	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/internal/format"
)

type (
	// Params is one plane's flags and geometry.
	Params = format.Params
	// Request is a creation request and its response.
	Request = format.Request
	// Info is the parameter block of a live buffer.
	Info = format.Info
	// MemFlags is the plane capability bitmask.
	MemFlags = format.MemFlags
	// Code is a daemon status code.
	Code = buffer.Code
	// Report is the structured live-buffer report.
	Report = buffer.Report
	// BufferReport is one buffer of a Report.
	BufferReport = buffer.BufferReport
	// PlaneReport is one plane of a BufferReport.
	PlaneReport = buffer.PlaneReport
)

// Plane memory flags.
const (
	MemSystem        = format.MemSystem
	MemContig        = format.MemContig
	MemSecure        = format.MemSecure
	MemTiler8        = format.MemTiler8
	MemTiler16       = format.MemTiler16
	MemTiler32       = format.MemTiler32
	MemTilerPage     = format.MemTilerPage
	MemMultiPlanar   = format.MemMultiPlanar
	MemInterleaved   = format.MemInterleaved
	MemHorSubsampled = format.MemHorSubsampled
	MemVerSubsampled = format.MemVerSubsampled
	MemFBVRAM        = format.MemFBVRAM
	MemVRAM          = format.MemVRAM
	MemPhysMigrate   = format.MemPhysMigrate
	MemRead          = format.MemRead
	MemWrite         = format.MemWrite
	MemCached        = format.MemCached
	MemWriteCombine  = format.MemWriteCombine
	MemKernelOnly    = format.MemKernelOnly
	MemSingleProcess = format.MemSingleProcess
	MemMapPageable   = format.MemMapPageable
	MemZeroInit      = format.MemZeroInit
)

// MaxPlanes is the number of plane slots in a Request.
const MaxPlanes = format.MaxPlanes

// NoDescriptor marks an absent descriptor.
const NoDescriptor = format.NoDescriptor

// Errors the daemon reports, matched with errors.Is.
var (
	ErrInvalidArgument          = buffer.ErrInvalidArgument
	ErrOutOfMemory              = buffer.ErrOutOfMemory
	ErrBackendAllocationFailed  = buffer.ErrBackendAllocationFailed
	ErrInvalidHandle            = buffer.ErrInvalidHandle
	ErrNotFound                 = buffer.ErrNotFound
	ErrDescriptorTableExhausted = buffer.ErrDescriptorTableExhausted
	ErrNotSupported             = buffer.ErrNotSupported
	ErrSessionClosed            = buffer.ErrSessionClosed
	ErrShutdown                 = buffer.ErrShutdown
	ErrInternal                 = buffer.ErrInternal
)

// Plane returns plane parameters with the stride equal to the width.
func Plane(flags MemFlags, bpp uint8, width, height uint16) Params {
	return Params{Flags: flags, BPP: bpp, Width: width, Height: height, StridePixels: width}
}

// NewRequest builds a creation request from up to MaxPlanes planes. Extra
// planes are ignored.
func NewRequest(pixelFormat uint32, exportPlanes bool, planes ...Params) *Request {
	req := &Request{PixelFormat: pixelFormat, ExportPlanes: exportPlanes}
	for i, p := range planes {
		if i == MaxPlanes {
			break
		}
		req.Planes[i].Params = p
	}
	return req
}

// ParseMemFlags parses flag names joined by "|" or "+", or a numeric literal.
func ParseMemFlags(s string) (MemFlags, error) { return format.ParseMemFlags(s) }
