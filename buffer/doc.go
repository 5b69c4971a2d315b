// Package buffer implements the shared graphics-buffer manager: it allocates
// multi-plane buffers for display, GPU and video consumers, names them, and
// tracks their lifetime through counted handles.
//
// # Overview
//
// A Manager owns the name registry and the backing heaps. Callers open a
// Session, which stands for one process: it has its own allocation context
// and its own table of descriptors.
//
//	m := buffer.New(buffer.DefaultOptions())
//	defer m.Shutdown()
//
//	s, err := m.Open()
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	req := format.Request{PixelFormat: 0x1}
//	req.Planes[0].Params = format.Params{
//	    Flags: format.MemSystem, BPP: 32, Width: 64, Height: 64,
//	    StridePixels: 64, AlignBytes: 16,
//	}
//	if err := s.Create(&req); err != nil {
//	    return err
//	}
//	info, err := s.GetParams(names.Name(req.Name))
//
// # Creation
//
// Planes are read from slot 0 up to the first slot whose flags are zero.
// Each plane's flags select one backing strategy (see package backing); the
// backend may override the requested stride and report an in-page offset,
// and the request is updated with that final geometry. Creation is
// all-or-nothing: if any plane fails, the planes already backed are released
// in reverse order and no name is assigned.
//
// # Lifetime
//
// A buffer lives while at least one reference exists. References are
// Handles and descriptors; Session.Create installs the first one. Dropping
// the last reference releases the name and then frees every plane region,
// exactly once, however many sessions shared the buffer.
//
// # Thread Safety
//
// Manager and Session are safe for concurrent use. The registry lock is held
// for single map operations only and never across a backing allocation.
// Each buffer has a teardown lock that readers of its parameters take so a
// concurrent free is never observed half-done.
package buffer
