//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// New creates an anonymous shared mapping. Without memfd there is no
// descriptor to export, so the region is not shareable.
func New(name string, size int, opts Options) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrEmpty
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: mmap %d: %w", size, err)
	}
	if opts.Populate || opts.WillNeed {
		_ = unix.Madvise(data, unix.MADV_WILLNEED)
	}
	m := &Mapping{name: name, data: data, fd: -1}
	m.unmap = func() error {
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return err
	}
	return m, nil
}

func dupFd(int, string) (*os.File, error) { return nil, ErrNotShareable }

func syncData(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Msync(data, unix.MS_SYNC)
}
