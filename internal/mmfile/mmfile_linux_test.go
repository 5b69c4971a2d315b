//go:build linux

package mmfile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNewSharedRegion(t *testing.T) {
	m, err := New("gfxbuf-test", 8192, Options{Populate: true})
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, 8192, m.Len())
	require.GreaterOrEqual(t, m.Fd(), 0)

	data := m.Bytes()
	data[0], data[8191] = 0xAA, 0x55
	require.NoError(t, m.Sync())

	f, err := m.Dup()
	require.NoError(t, err)
	defer f.Close()

	// The duplicate sees the same pages.
	other, err := unix.Mmap(int(f.Fd()), 0, 8192, unix.PROT_READ, unix.MAP_SHARED)
	require.NoError(t, err)
	defer unix.Munmap(other)
	require.Equal(t, byte(0xAA), other[0])
	require.Equal(t, byte(0x55), other[8191])
}

func TestDupOutlivesClose(t *testing.T) {
	m, err := New("gfxbuf-test", 4096, Options{})
	require.NoError(t, err)
	m.Bytes()[10] = 7

	f, err := m.Dup()
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close is a no-op")
	require.Equal(t, -1, m.Fd())
	_, err = m.Dup()
	require.ErrorIs(t, err, ErrClosed)

	st, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(4096), st.Size())
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New("gfxbuf-test", 0, Options{})
	require.ErrorIs(t, err, ErrEmpty)
}
