//go:build unix

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/buffer/names"
	"github.com/joshuapare/gfxbuf/internal/format"
	"github.com/joshuapare/gfxbuf/internal/proto"
)

// dispatch executes one command. Files returned alongside a successful
// payload are sent to the client and then closed.
func (s *Server) dispatch(sess *buffer.Session, cmd proto.Command, payload []byte) ([]byte, []*os.File, error) {
	switch cmd {
	case proto.CmdCreate:
		return s.create(sess, payload)

	case proto.CmdGetParams:
		name, err := proto.DecodeName(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", buffer.ErrInvalidArgument, err)
		}
		info, err := sess.GetParams(names.Name(name))
		if err != nil {
			return nil, nil, err
		}
		b, err := info.MarshalBinary()
		return b, nil, err

	case proto.CmdSync:
		fd, timeout, err := proto.DecodeSync(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", buffer.ErrInvalidArgument, err)
		}
		return nil, nil, sess.Sync(int(fd), timeout)

	case proto.CmdClose:
		fd, err := proto.DecodeFD(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", buffer.ErrInvalidArgument, err)
		}
		return nil, nil, sess.CloseFD(int(fd))

	case proto.CmdDup:
		fd, err := proto.DecodeFD(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", buffer.ErrInvalidArgument, err)
		}
		nfd, err := sess.Dup(int(fd))
		if err != nil {
			return nil, nil, err
		}
		return proto.EncodeFD(int32(nfd)), nil, nil

	case proto.CmdDump:
		report := s.mgr.Dump()
		if proto.DumpWantsJSON(payload) {
			b, err := json.Marshal(report)
			return b, nil, err
		}
		return []byte(report.String()), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: command %s", buffer.ErrNotSupported, cmd)
}

// create serves CREATE. Each exported plane leaves the session as an OS
// descriptor: the session's plane entry is closed once the file is open, so
// the client holds the only reference outside the buffer itself.
func (s *Server) create(sess *buffer.Session, payload []byte) ([]byte, []*os.File, error) {
	var req format.Request
	if err := req.UnmarshalBinary(payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", buffer.ErrInvalidArgument, err)
	}
	if err := sess.Create(&req); err != nil {
		return nil, nil, err
	}

	var files []*os.File
	for i := range req.Planes {
		fd := req.Planes[i].ExportFd
		if fd == format.NoDescriptor {
			continue
		}
		f, err := sess.OpenPlane(int(fd))
		if cerr := sess.CloseFD(int(fd)); cerr != nil {
			s.log.Warn("close plane export", "fd", fd, "err", cerr)
		}
		if err != nil {
			s.log.Debug("plane not shareable", "plane", i, "err", err)
			req.Planes[i].ExportFd = format.NoDescriptor
			continue
		}
		files = append(files, f)
	}

	b, err := req.MarshalBinary()
	if err != nil {
		closeFiles(files)
		_ = sess.CloseFD(int(req.Descriptor))
		return nil, nil, err
	}
	return b, files, nil
}

func rights(files []*os.File) []byte {
	if len(files) == 0 {
		return nil
	}
	fds := make([]int, len(files))
	for i, f := range files {
		fds[i] = int(f.Fd())
	}
	return unix.UnixRights(fds...)
}
