package buffer

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

// Report is a snapshot of every live buffer.
type Report struct {
	Buffers    []BufferReport `json:"buffers"`
	TotalBytes int64          `json:"total_bytes"` // resident backing bytes
}

// BufferReport describes one live buffer.
type BufferReport struct {
	Name        names.Name    `json:"name"`
	PixelFormat uint32        `json:"pixel_format"`
	Planes      []PlaneReport `json:"planes"`
}

// PlaneReport describes one plane of a live buffer.
type PlaneReport struct {
	format.Params
	Strategy string `json:"strategy"`
	Resident bool   `json:"resident"`
}

// Dump walks the registry under its read lock. It takes each buffer's
// teardown lock but changes nothing.
func (m *Manager) Dump() Report {
	var rep Report
	m.names.Range(func(name names.Name, o *Object) bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.freed {
			return true
		}
		br := BufferReport{Name: name, PixelFormat: o.pixelFormat, Planes: make([]PlaneReport, len(o.planes))}
		for i := range o.planes {
			p := &o.planes[i]
			br.Planes[i] = PlaneReport{
				Params:   p.params,
				Strategy: backing.Classify(p.params.Flags).String(),
				Resident: p.region != nil && p.region.Resident(),
			}
		}
		rep.TotalBytes += o.residentBytesLocked()
		rep.Buffers = append(rep.Buffers, br)
		return true
	})
	return rep
}

// WriteTo writes the text report.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("Live Buffers\n")
	for _, buf := range r.Buffers {
		fmt.Fprintf(&b, "Buffer name %d with format 0x%08x  and num planes %d\n",
			buf.Name, buf.PixelFormat, len(buf.Planes))
		for i, p := range buf.Planes {
			fmt.Fprintf(&b, "\t%d). size: %d, (w %d x h %d) @ %d bpp, flags 0x%08x\n",
				i, p.SizeBytes, p.Width, p.Height, p.BPP, uint32(p.Flags))
			fmt.Fprintf(&b, "\t\tstride %d pixels, offset %d bytes, alignment %d bytes\n",
				p.StridePixels, p.OffsetBytes, p.AlignBytes)
			b.WriteString("\tMemory Flags: ")
			for _, bit := range p.Flags.Bits() {
				fmt.Fprintf(&b, "%s (0x%08x), ", bit, uint32(bit))
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "*** Total Buffers Size %d bytes ***\n", r.TotalBytes)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (r Report) String() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}
