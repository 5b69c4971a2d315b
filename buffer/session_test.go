package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
)

func TestDescriptorsAreLowestFree(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	var fds []int32
	for i := 0; i < 3; i++ {
		req := request(plane(format.MemSystem, 8, 8, 8, 0))
		require.NoError(t, s.Create(req))
		fds = append(fds, req.Descriptor)
	}
	require.Equal(t, []int32{0, 1, 2}, fds)

	require.NoError(t, s.CloseFD(1))
	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	require.NoError(t, s.Create(req))
	require.Equal(t, int32(1), req.Descriptor)
}

func TestCreateExportsPlanes(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(
		plane(format.MemSystem, 8, 64, 64, 0),
		plane(format.MemFBVRAM, 16, 32, 32, 0),
		plane(format.MemContig, 16, 32, 32, 0),
	)
	req.ExportPlanes = true
	require.NoError(t, s.Create(req))

	require.Equal(t, int32(0), req.Descriptor)
	require.Equal(t, int32(1), req.Planes[0].ExportFd)
	require.Equal(t, format.NoDescriptor, req.Planes[1].ExportFd, "placeholder planes are not exported")
	require.Equal(t, int32(2), req.Planes[2].ExportFd)
	require.Equal(t, format.NoDescriptor, req.Planes[3].ExportFd)
	require.Equal(t, 3, s.Len())

	pe, err := s.Plane(int(req.Planes[2].ExportFd))
	require.NoError(t, err)
	require.Equal(t, names.Name(req.Name), pe.Name)
	require.Equal(t, 2, pe.Plane)
	require.Equal(t, int(req.Planes[2].SizeBytes), pe.Size)

	// A plane export keeps its region, not the buffer.
	contig := m.Heaps().Contig()
	require.NoError(t, s.CloseFD(int(req.Descriptor)))
	require.Zero(t, m.Live())
	require.Equal(t, int(req.Planes[2].SizeBytes), contig.InUse())

	require.NoError(t, s.CloseFD(int(req.Planes[2].ExportFd)))
	require.Zero(t, contig.InUse())
}

func TestFromFDChecksType(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	req.ExportPlanes = true
	require.NoError(t, s.Create(req))

	_, err := s.FromFD(int(req.Planes[0].ExportFd))
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.Info(int(req.Planes[0].ExportFd))
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.FromFD(42)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.FromFD(-1)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.Plane(int(req.Descriptor))
	require.ErrorIs(t, err, ErrInvalidHandle)

	h, err := s.FromFD(int(req.Descriptor))
	require.NoError(t, err)
	require.Equal(t, names.Name(req.Name), h.Name())
	require.NoError(t, h.Put())
}

func TestDescriptorTableLimit(t *testing.T) {
	m := newManager(t, Options{MaxDescriptors: 2})
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	require.NoError(t, s.Create(req))
	h, err := s.FromFD(int(req.Descriptor))
	require.NoError(t, err)
	defer h.Put()

	fd, err := s.GetFD(h)
	require.NoError(t, err)
	require.Equal(t, 1, fd)
	refs := h.Object().refs.Load()

	_, err = s.GetFD(h)
	require.ErrorIs(t, err, ErrDescriptorTableExhausted)
	require.Equal(t, refs, h.Object().refs.Load(), "no leaked reference")

	_, err = s.Dup(0)
	require.ErrorIs(t, err, ErrDescriptorTableExhausted)
	require.Equal(t, refs, h.Object().refs.Load())

	err = s.Create(request(plane(format.MemSystem, 8, 8, 8, 0)))
	require.ErrorIs(t, err, ErrDescriptorTableExhausted)
	require.Equal(t, CodeDescriptorTableExhausted, CodeOf(err))
	require.Equal(t, 1, m.Live())
}

func TestDupAndCloseFD(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	require.NoError(t, s.Create(req))

	dup, err := s.Dup(int(req.Descriptor))
	require.NoError(t, err)
	require.NotEqual(t, int(req.Descriptor), dup)

	require.NoError(t, s.CloseFD(int(req.Descriptor)))
	info, err := s.Info(dup)
	require.NoError(t, err)
	require.Equal(t, req.Name, info.Name)

	require.ErrorIs(t, s.CloseFD(int(req.Descriptor)), ErrInvalidHandle)
	require.NoError(t, s.CloseFD(dup))
	require.Zero(t, m.Live())
}

func TestPassBetweenSessions(t *testing.T) {
	m := newManager(t, DefaultOptions())
	producer := openSession(t, m)
	consumer := openSession(t, m)

	req := request(plane(format.MemSystem, 32, 64, 64, 0))
	require.NoError(t, producer.Create(req))

	fd, err := producer.Pass(int(req.Descriptor), consumer)
	require.NoError(t, err)
	require.NoError(t, producer.Close())

	info, err := consumer.Info(fd)
	require.NoError(t, err)
	require.Equal(t, req.Planes[0].Params, info.Planes[0])

	require.NoError(t, consumer.Close())
	_, err = m.GetParams(names.Name(req.Name))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionCloseReleasesEverything(t *testing.T) {
	m := newManager(t, Options{ContigHeapBytes: 1 << 20})
	s, err := m.Open()
	require.NoError(t, err)
	require.Equal(t, 1, m.Sessions())

	for i := 0; i < 3; i++ {
		req := request(plane(format.MemContig, 32, 64, 64, 0))
		req.ExportPlanes = true
		require.NoError(t, s.Create(req))
	}
	require.Equal(t, 3, m.Live())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Zero(t, m.Live())
	require.Zero(t, m.Sessions())
	require.Zero(t, m.Heaps().Contig().InUse())
	require.True(t, s.ctx.Closed())

	require.ErrorIs(t, s.Create(request(plane(format.MemSystem, 8, 8, 8, 0))), ErrSessionClosed)
	_, err = s.FromFD(0)
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, s.CloseFD(0), ErrSessionClosed)
	_, err = s.GetParams(1)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSyncIsNotSupported(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 8, 8, 0))
	require.NoError(t, s.Create(req))

	require.ErrorIs(t, s.Sync(int(req.Descriptor), 100*time.Millisecond), ErrNotSupported)
	require.ErrorIs(t, s.Sync(7, time.Second), ErrInvalidHandle)
}

func TestBytesMapsPlanes(t *testing.T) {
	m := newManager(t, DefaultOptions())
	s := openSession(t, m)

	req := request(plane(format.MemSystem, 8, 64, 64, 0), plane(format.MemFBVRAM, 8, 64, 64, 0))
	require.NoError(t, s.Create(req))
	fd := int(req.Descriptor)

	b, err := s.Bytes(fd, 0)
	require.NoError(t, err)
	require.Len(t, b, int(req.Planes[0].SizeBytes))

	_, err = s.Bytes(fd, 1)
	require.ErrorIs(t, err, ErrNotSupported)
	_, err = s.Bytes(fd, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
