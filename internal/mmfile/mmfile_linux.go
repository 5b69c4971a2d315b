//go:build linux

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// New creates a memfd-backed region of size bytes mapped read/write and shared.
func New(name string, size int, opts Options) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrEmpty
	}
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("mmfile: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmfile: ftruncate %d: %w", size, err)
	}
	flags := unix.MAP_SHARED
	if opts.Populate {
		flags |= unix.MAP_POPULATE
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmfile: mmap %d: %w", size, err)
	}
	if opts.WillNeed {
		// advisory only
		_ = unix.Madvise(data, unix.MADV_WILLNEED)
	}
	m := &Mapping{name: name, data: data, fd: fd}
	m.unmap = func() error {
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			err = nil
		}
		return errors.Join(err, unix.Close(fd))
	}
	return m, nil
}

func dupFd(fd int, name string) (*os.File, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmfile: dup: %w", err)
	}
	return os.NewFile(uintptr(nfd), name), nil
}

func syncData(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Msync(data, unix.MS_SYNC)
}
