//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package mmfile

import "os"

// New allocates private memory when mmap is not available.
func New(name string, size int, _ Options) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrEmpty
	}
	m := &Mapping{name: name, data: make([]byte, size), fd: -1}
	m.unmap = func() error { return nil }
	return m, nil
}

func dupFd(int, string) (*os.File, error) { return nil, ErrNotShareable }

func syncData([]byte) error { return nil }
