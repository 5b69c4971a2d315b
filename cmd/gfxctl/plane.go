package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
)

// parsePlane parses a --plane spec such as
//
//	flags=TILER_8BIT+CACHED,bpp=8,w=1920,h=1080,stride=2048,align=128
//
// flags, bpp, w and h are required. stride defaults to w.
func parsePlane(spec string) (gfxbuf.Params, error) {
	var p gfxbuf.Params
	seen := map[string]bool{}
	for _, field := range strings.Split(spec, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok {
			return p, fmt.Errorf("plane %q: expected key=value, got %q", spec, field)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if seen[k] {
			return p, fmt.Errorf("plane %q: %s given twice", spec, k)
		}
		seen[k] = true

		var err error
		switch k {
		case "flags":
			p.Flags, err = gfxbuf.ParseMemFlags(v)
		case "bpp":
			var n uint64
			n, err = strconv.ParseUint(v, 0, 8)
			p.BPP = uint8(n)
		case "w", "width":
			p.Width, err = parseU16(v)
		case "h", "height":
			p.Height, err = parseU16(v)
		case "stride":
			p.StridePixels, err = parseU16(v)
		case "align":
			p.AlignBytes, err = parseU16(v)
		default:
			return p, fmt.Errorf("plane %q: unknown key %q", spec, k)
		}
		if err != nil {
			return p, fmt.Errorf("plane %q: %s: %w", spec, k, err)
		}
	}

	for _, k := range []string{"flags", "bpp"} {
		if !seen[k] {
			return p, fmt.Errorf("plane %q: missing %s", spec, k)
		}
	}
	if p.Flags == 0 {
		return p, fmt.Errorf("plane %q: flags must not be empty", spec)
	}
	if p.Width == 0 || p.Height == 0 {
		return p, fmt.Errorf("plane %q: w and h are required", spec)
	}
	if !seen["stride"] {
		p.StridePixels = p.Width
	}
	return p, nil
}

func parseU16(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 0, 16)
	return uint16(n), err
}

// parsePixelFormat accepts a number or a four-character code such as NV12.
func parsePixelFormat(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(n), nil
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("pixel format %q: want a number or a fourcc", s)
	}
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24, nil
}
