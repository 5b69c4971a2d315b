//go:build linux

package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/gfxbuf/internal/format"
)

func TestOpenPlaneSharesMemory(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem|format.MemCached, 32, 64, 64, 0))
	req.ExportPlanes = true
	require.NoError(t, s.Create(req))

	b, err := s.Bytes(int(req.Descriptor), 0)
	require.NoError(t, err)
	b[0], b[len(b)-1] = 0x11, 0x22

	f, err := s.OpenPlane(int(req.Planes[0].ExportFd))
	require.NoError(t, err)
	defer f.Close()

	// The file outlives every reference held by the manager.
	require.NoError(t, s.Close())
	require.Zero(t, m.Live())

	size := int(req.Planes[0].SizeBytes)
	other, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	require.NoError(t, err)
	defer unix.Munmap(other)
	require.Equal(t, byte(0x11), other[0])
	require.Equal(t, byte(0x22), other[size-1])
}

func TestOpenPlaneRejectsBufferDescriptor(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	require.NoError(t, s.Create(req))
	_, err := s.OpenPlane(int(req.Descriptor))
	require.ErrorIs(t, err, ErrInvalidHandle)
}
