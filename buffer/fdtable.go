package buffer

import (
	"errors"

	"github.com/joshuapare/gfxbuf/buffer/backing"
	"github.com/joshuapare/gfxbuf/buffer/names"
)

// entryKind is the type tag of a descriptor.
type entryKind uint8

const (
	kindReserved entryKind = iota + 1
	kindBuffer             // a buffer handle
	kindPlane              // one plane's exported region
)

// planeExport is a reference to a single plane region, exported on its own.
type planeExport struct {
	name   names.Name
	index  int
	region *backing.Region
}

// entry is one slot of a descriptor table. It owns one reference.
type entry struct {
	kind   entryKind
	handle *Handle
	plane  *planeExport
}

func (e *entry) release() error {
	switch e.kind {
	case kindBuffer:
		return e.handle.Put()
	case kindPlane:
		return e.plane.region.Release()
	}
	return nil
}

// dup takes a new reference to whatever e refers to.
func (e *entry) dup() (*entry, error) {
	switch e.kind {
	case kindBuffer:
		h, err := e.handle.Dup()
		if err != nil {
			return nil, err
		}
		return &entry{kind: kindBuffer, handle: h}, nil
	case kindPlane:
		if err := e.plane.region.Retain(); err != nil {
			return nil, ErrInvalidHandle
		}
		pe := *e.plane
		return &entry{kind: kindPlane, plane: &pe}, nil
	}
	return nil, ErrInvalidHandle
}

var reservedEntry = &entry{kind: kindReserved}

// fdTable maps small non-negative integers to entries, handing out the
// lowest free number first.
type fdTable struct {
	max   int
	slots []*entry // nil marks a free slot
	used  int
}

func newFDTable(max int) *fdTable {
	return &fdTable{max: max}
}

// reserve claims n descriptors, all or none.
func (t *fdTable) reserve(n int) ([]int, error) {
	if t.used+n > t.max {
		return nil, ErrDescriptorTableExhausted
	}
	fds := make([]int, 0, n)
	for fd := 0; len(fds) < n; fd++ {
		if fd == len(t.slots) {
			t.slots = append(t.slots, nil)
		}
		if t.slots[fd] == nil {
			t.slots[fd] = reservedEntry
			fds = append(fds, fd)
		}
	}
	t.used += n
	return fds, nil
}

// fill installs e into a reserved descriptor.
func (t *fdTable) fill(fd int, e *entry) {
	t.slots[fd] = e
}

// install places e at the lowest free descriptor.
func (t *fdTable) install(e *entry) (int, error) {
	fds, err := t.reserve(1)
	if err != nil {
		return -1, err
	}
	t.fill(fds[0], e)
	return fds[0], nil
}

// get returns the live entry at fd.
func (t *fdTable) get(fd int) (*entry, error) {
	if fd < 0 || fd >= len(t.slots) {
		return nil, errBadDescriptor
	}
	e := t.slots[fd]
	if e == nil || e.kind == kindReserved {
		return nil, errBadDescriptor
	}
	return e, nil
}

// remove empties fd and returns what it held, reserved or not.
func (t *fdTable) remove(fd int) (*entry, error) {
	if fd < 0 || fd >= len(t.slots) || t.slots[fd] == nil {
		return nil, errBadDescriptor
	}
	e := t.slots[fd]
	t.slots[fd] = nil
	t.used--
	for n := len(t.slots); n > 0 && t.slots[n-1] == nil; n-- {
		t.slots = t.slots[:n-1]
	}
	return e, nil
}

// drain empties the table and returns every live entry.
func (t *fdTable) drain() []*entry {
	var out []*entry
	for _, e := range t.slots {
		if e != nil && e.kind != kindReserved {
			out = append(out, e)
		}
	}
	t.slots = nil
	t.used = 0
	return out
}

var errBadDescriptor = errors.New("bad descriptor")
