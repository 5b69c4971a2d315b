package main

import (
	"strings"
	"testing"

	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
)

func TestParsePlane(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    gfxbuf.Params
		wantErr string
	}{
		{
			name: "minimal",
			spec: "flags=SYSTEM,bpp=32,w=64,h=64",
			want: gfxbuf.Params{Flags: gfxbuf.MemSystem, BPP: 32, Width: 64, Height: 64, StridePixels: 64},
		},
		{
			name: "all keys",
			spec: "flags=TILER_8BIT+CACHED, bpp=8, width=1920, height=1080, stride=2048, align=0x80",
			want: gfxbuf.Params{
				Flags: gfxbuf.MemTiler8 | gfxbuf.MemCached, BPP: 8,
				Width: 1920, Height: 1080, StridePixels: 2048, AlignBytes: 128,
			},
		},
		{
			name: "numeric flags",
			spec: "flags=0x40001,bpp=16,w=8,h=8",
			want: gfxbuf.Params{Flags: gfxbuf.MemSystem | gfxbuf.MemCached, BPP: 16, Width: 8, Height: 8, StridePixels: 8},
		},
		{name: "missing flags", spec: "bpp=8,w=8,h=8", wantErr: "missing flags"},
		{name: "missing size", spec: "flags=SYSTEM,bpp=8,w=8", wantErr: "w and h are required"},
		{name: "unknown key", spec: "flags=SYSTEM,bpp=8,w=8,h=8,depth=2", wantErr: "unknown key"},
		{name: "not key value", spec: "SYSTEM", wantErr: "expected key=value"},
		{name: "duplicate", spec: "flags=SYSTEM,bpp=8,bpp=16,w=8,h=8", wantErr: "given twice"},
		{name: "bad flag", spec: "flags=SHINY,bpp=8,w=8,h=8", wantErr: "unknown memory flag"},
		{name: "overflow", spec: "flags=SYSTEM,bpp=8,w=70000,h=8", wantErr: "w:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlane(tt.spec)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("parsePlane(%q) error = %v, want containing %q", tt.spec, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePlane(%q) error = %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("parsePlane(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParsePixelFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "0x1", want: 1},
		{in: "42", want: 42},
		{in: "NV12", want: 0x3231564E},
		{in: "XR24", want: 0x34325258},
		{in: "RGB", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePixelFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parsePixelFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parsePixelFormat(%q) = 0x%08x, want 0x%08x", tt.in, got, tt.want)
		}
	}
}

func TestBuildRequest(t *testing.T) {
	defer func() { allocPlanes, allocFormat, allocExport = nil, "0x1", false }()

	allocPlanes = nil
	if _, err := buildRequest(); err == nil {
		t.Fatal("expected an error without planes")
	}

	allocFormat = "NV12"
	allocExport = true
	allocPlanes = []string{
		"flags=TILER_8BIT,bpp=8,w=1920,h=1080",
		"flags=TILER_16BIT,bpp=16,w=960,h=540",
	}
	req, err := buildRequest()
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.PixelFormat != 0x3231564E || !req.ExportPlanes {
		t.Errorf("request header = 0x%08x export=%v", req.PixelFormat, req.ExportPlanes)
	}
	if req.ValidPlanes() != 2 {
		t.Errorf("ValidPlanes() = %d, want 2", req.ValidPlanes())
	}
	if req.Planes[1].Flags != gfxbuf.MemTiler16 {
		t.Errorf("plane 1 flags = %s", req.Planes[1].Flags)
	}

	allocPlanes = append(allocPlanes, allocPlanes...)
	allocPlanes = append(allocPlanes, "flags=SYSTEM,bpp=8,w=8,h=8")
	if _, err := buildRequest(); err == nil {
		t.Fatal("expected an error for five planes")
	}
}
