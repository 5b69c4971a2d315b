package format

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MemFlags is the per-plane capability bitset: where the memory lives, how
// the plane is laid out and how it may be accessed.
type MemFlags uint32

// Location flags.
const (
	MemSystem    MemFlags = 1 << 0
	MemContig    MemFlags = 1 << 1
	MemSecure    MemFlags = 1 << 2
	MemTiler8    MemFlags = 1 << 3
	MemTiler16   MemFlags = 1 << 4
	MemTiler32   MemFlags = 1 << 5
	MemTilerPage MemFlags = 1 << 6
	MemTilerRes1 MemFlags = 1 << 7 // reserved for future tiler modes
	MemTilerRes2 MemFlags = 1 << 8 // reserved for future tiler modes
)

// Layout flags.
const (
	MemMultiPlanar   MemFlags = 1 << 9
	MemInterleaved   MemFlags = 1 << 10
	MemHorSubsampled MemFlags = 1 << 11 // 2:1 horizontal
	MemVerSubsampled MemFlags = 1 << 12 // 2:1 vertical
)

// Special memory flags.
const (
	MemFBVRAM      MemFlags = 1 << 13 // framebuffer carve-out
	MemVRAM        MemFlags = 1 << 14 // prefer fast VRAM over DRAM
	MemPhysMigrate MemFlags = 1 << 15 // may migrate between VRAM and DRAM
)

// Access flags.
const (
	MemRead          MemFlags = 1 << 16
	MemWrite         MemFlags = 1 << 17
	MemCached        MemFlags = 1 << 18
	MemWriteCombine  MemFlags = 1 << 19
	MemKernelOnly    MemFlags = 1 << 20 // no CPU mapping
	MemSingleProcess MemFlags = 1 << 21 // must not be exported
	MemMapPageable   MemFlags = 1 << 30
	MemZeroInit      MemFlags = 1 << 31
)

// MemTiler is any of the tiler placement modes.
const MemTiler = MemTiler8 | MemTiler16 | MemTiler32 | MemTilerPage

var flagNames = map[MemFlags]string{
	MemSystem:        "SYSTEM",
	MemContig:        "CONTIG",
	MemSecure:        "SECURE",
	MemTiler8:        "TILER_8BIT",
	MemTiler16:       "TILER_16BIT",
	MemTiler32:       "TILER_32BIT",
	MemTilerPage:     "TILER_PAGE",
	MemMultiPlanar:   "MULTI_PLANAR",
	MemInterleaved:   "INTERLEAVED",
	MemHorSubsampled: "2_1_HOR_SUBSAMPLED",
	MemVerSubsampled: "2_1_VER_SUBSAMPLED",
	MemFBVRAM:        "FB_VRAM",
	MemVRAM:          "VRAM",
	MemPhysMigrate:   "PHYS_MIGRATE",
	MemRead:          "READ",
	MemWrite:         "WRITE",
	MemCached:        "CACHED",
	MemWriteCombine:  "WC",
	MemKernelOnly:    "KERNEL_ONLY",
	MemSingleProcess: "SINGLE_PROCESS",
	MemMapPageable:   "MAP_CPU_PAGEABLE",
	MemZeroInit:      "ZERO_INIT",
}

var flagsByName = func() map[string]MemFlags {
	m := make(map[string]MemFlags, len(flagNames)+2)
	for f, n := range flagNames {
		m[n] = f
	}
	m["WRITE_COMBINE"] = MemWriteCombine
	m["MAP_PAGEABLE"] = MemMapPageable
	return m
}()

// Has reports whether every bit of mask is set.
func (f MemFlags) Has(mask MemFlags) bool { return f&mask == mask }

// Any reports whether at least one bit of mask is set.
func (f MemFlags) Any(mask MemFlags) bool { return f&mask != 0 }

// Bits splits f into its set bits, lowest first.
func (f MemFlags) Bits() []MemFlags {
	out := make([]MemFlags, 0, bits.OnesCount32(uint32(f)))
	for rest := uint32(f); rest != 0; rest &= rest - 1 {
		out = append(out, MemFlags(rest&-rest))
	}
	return out
}

// Names returns the names of the set bits, lowest bit first.
// Bits without a name render as UNKNOWN(0x...).
func (f MemFlags) Names() []string {
	bs := f.Bits()
	out := make([]string, 0, len(bs))
	for _, bit := range bs {
		if n, ok := flagNames[bit]; ok {
			out = append(out, n)
		} else {
			out = append(out, fmt.Sprintf("UNKNOWN(0x%08x)", uint32(bit)))
		}
	}
	return out
}

// String renders the flags as NAME|NAME, or "0" when empty.
func (f MemFlags) String() string {
	if f == 0 {
		return "0"
	}
	return strings.Join(f.Names(), "|")
}

// ParseMemFlags parses "SYSTEM|CACHED", "system+cached" or a numeric literal
// such as "0x40001".
func ParseMemFlags(s string) (MemFlags, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseUint(s, 0, 32); err == nil {
		return MemFlags(v), nil
	}
	var f MemFlags
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == '+' }) {
		name := strings.ToUpper(strings.TrimSpace(part))
		bit, ok := flagsByName[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, part)
		}
		f |= bit
	}
	return f, nil
}
