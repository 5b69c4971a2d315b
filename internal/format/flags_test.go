package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFlagsString(t *testing.T) {
	require.Equal(t, "0", MemFlags(0).String())
	require.Equal(t, "SYSTEM", MemSystem.String())
	require.Equal(t, "SYSTEM|CACHED|ZERO_INIT", (MemSystem | MemCached | MemZeroInit).String())
	require.Equal(t, []string{"TILER_8BIT", "UNKNOWN(0x00400000)"}, (MemTiler8 | 1<<22).Names())
}

func TestParseMemFlags(t *testing.T) {
	tests := []struct {
		in   string
		want MemFlags
	}{
		{"", 0},
		{"SYSTEM", MemSystem},
		{"system|cached", MemSystem | MemCached},
		{"TILER_PAGE + WRITE_COMBINE", MemTilerPage | MemWriteCombine},
		{"MAP_PAGEABLE", MemMapPageable},
		{"0x40001", MemSystem | MemCached},
		{"2", MemContig},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemFlags(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMemFlags("SYSTEM|BOGUS")
	require.ErrorIs(t, err, ErrUnknownFlag)
}

func TestParseMemFlagsRoundTripsNames(t *testing.T) {
	f := MemContig | MemRead | MemWrite | MemKernelOnly
	got, err := ParseMemFlags(f.String())
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestMemFlagsPredicates(t *testing.T) {
	f := MemTiler16 | MemCached
	require.True(t, f.Any(MemTiler))
	require.False(t, f.Has(MemTiler))
	require.True(t, f.Has(MemCached))
	require.False(t, MemSystem.Any(MemTiler))
}
