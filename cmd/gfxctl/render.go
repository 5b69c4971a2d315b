package main

import (
	"strings"

	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatBytes renders a byte count with digit grouping and a binary unit.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return printer.Sprintf("%d bytes (%.1f GiB)", n, float64(n)/(1<<30))
	case n >= 1<<20:
		return printer.Sprintf("%d bytes (%.1f MiB)", n, float64(n)/(1<<20))
	case n >= 1<<10:
		return printer.Sprintf("%d bytes (%.1f KiB)", n, float64(n)/(1<<10))
	}
	return printer.Sprintf("%d bytes", n)
}

// renderReport lays a report out for the terminal.
func renderReport(rep gfxbuf.Report) string {
	var b strings.Builder
	b.WriteString(paint(headerStyle, printer.Sprintf("Live Buffers: %d", len(rep.Buffers))))
	b.WriteString("\n\n")
	if len(rep.Buffers) == 0 {
		b.WriteString(paint(flagsStyle, "  (none)"))
		b.WriteString("\n")
	}
	for _, buf := range rep.Buffers {
		b.WriteString(paint(bufferStyle, printer.Sprintf("Buffer %d", buf.Name)))
		b.WriteString(printer.Sprintf("  format 0x%08x, %d plane(s)\n", buf.PixelFormat, len(buf.Planes)))
		for i, p := range buf.Planes {
			kind := paint(strategyStyle, p.Strategy)
			if !p.Resident {
				kind = paint(placeholderStyle, p.Strategy+" (placeholder)")
			}
			b.WriteString(printer.Sprintf("  %d) %s  %s\n", i, kind, p.Params))
			b.WriteString("     ")
			b.WriteString(paint(flagsStyle, p.Flags.String()))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(paint(totalStyle, "Total resident: "+formatBytes(rep.TotalBytes)))
	b.WriteString("\n")
	return b.String()
}
