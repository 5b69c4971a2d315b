//go:build unix

package gfxbuf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/gfxbuf/buffer"
	"github.com/joshuapare/gfxbuf/internal/format"
	"github.com/joshuapare/gfxbuf/internal/proto"
)

// DefaultSocket is where gfxctl serve listens unless told otherwise.
const DefaultSocket = "/tmp/gfxbuf.sock"

// ErrClosed is returned by calls on a closed Client.
var ErrClosed = errors.New("gfxbuf: client closed")

// Error is a failure reported by the daemon. It unwraps to the buffer
// error matching Code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "gfxbuf: " + e.Code.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Code.Err() }

// Client is a connection to a buffer manager daemon. The daemon tracks one
// session per connection; closing the client releases every descriptor it
// still holds remotely. Calls are serialized.
type Client struct {
	mu     sync.Mutex
	conn   *net.UnixConn
	closed bool
}

// Dial connects to the daemon listening on path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Create allocates a buffer. On success req carries the buffer name, its
// remote descriptor and the final plane parameters. When req.ExportPlanes
// is set, the returned slice holds one open file per exported plane, indexed
// by plane, and nil for planes that were not exported. The caller owns the
// files. ExportFd of an exported plane is set to the file's local descriptor.
func (c *Client) Create(req *Request) ([]*os.File, error) {
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	resp, files, err := c.roundTrip(proto.CmdCreate, b)
	if err != nil {
		closeAll(files)
		return nil, err
	}
	if err := req.UnmarshalBinary(resp); err != nil {
		closeAll(files)
		return nil, fmt.Errorf("decode create response: %w", err)
	}

	out := make([]*os.File, req.NumPlanes)
	next := 0
	for i := range out {
		if req.Planes[i].ExportFd == format.NoDescriptor {
			continue
		}
		if next == len(files) {
			closeAll(files)
			return nil, fmt.Errorf("%w: plane %d missing its descriptor", buffer.ErrInternal, i)
		}
		out[i] = files[next]
		req.Planes[i].ExportFd = int32(files[next].Fd())
		next++
	}
	closeAll(files[next:])
	return out, nil
}

// GetParams returns the parameters of a live buffer by name.
func (c *Client) GetParams(name uint32) (Info, error) {
	resp, _, err := c.roundTrip(proto.CmdGetParams, proto.EncodeName(name))
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := info.UnmarshalBinary(resp); err != nil {
		return Info{}, fmt.Errorf("decode params: %w", err)
	}
	return info, nil
}

// Sync asks the daemon to synchronize a remote descriptor. The daemon does
// not implement synchronization and answers with ErrNotSupported for any
// valid descriptor.
func (c *Client) Sync(fd int32, timeout time.Duration) error {
	_, _, err := c.roundTrip(proto.CmdSync, proto.EncodeSync(fd, timeout))
	return err
}

// CloseFD closes a remote descriptor.
func (c *Client) CloseFD(fd int32) error {
	_, _, err := c.roundTrip(proto.CmdClose, proto.EncodeFD(fd))
	return err
}

// Dup duplicates a remote descriptor.
func (c *Client) Dup(fd int32) (int32, error) {
	resp, _, err := c.roundTrip(proto.CmdDup, proto.EncodeFD(fd))
	if err != nil {
		return format.NoDescriptor, err
	}
	return proto.DecodeFD(resp)
}

// Dump returns the daemon's live-buffer report.
func (c *Client) Dump() (string, error) {
	resp, _, err := c.roundTrip(proto.CmdDump, nil)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// DumpReport returns the daemon's live-buffer report in structured form.
func (c *Client) DumpReport() (Report, error) {
	resp, _, err := c.roundTrip(proto.CmdDump, []byte{proto.DumpJSON})
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(resp, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// roundTrip sends one request and reads its response together with any
// descriptors attached to it. A non-zero status becomes the matching
// buffer error, carrying the daemon's message.
func (c *Client) roundTrip(cmd proto.Command, payload []byte) ([]byte, []*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrClosed
	}

	if err := proto.WriteFrame(c.conn, uint16(cmd), payload); err != nil {
		return nil, nil, fmt.Errorf("send %s: %w", cmd, err)
	}

	var hdr [proto.HeaderSize]byte
	oob := make([]byte, unix.CmsgSpace(4*format.MaxPlanes))
	var files []*os.File
	got := 0
	for got < len(hdr) {
		n, oobn, _, _, err := c.conn.ReadMsgUnix(hdr[got:], oob)
		if oobn > 0 {
			fs, perr := filesFrom(oob[:oobn])
			files = append(files, fs...)
			if perr != nil {
				closeAll(files)
				return nil, nil, perr
			}
		}
		got += n
		if err != nil {
			closeAll(files)
			if errors.Is(err, io.EOF) && got > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, nil, fmt.Errorf("receive %s: %w", cmd, err)
		}
		if n == 0 && oobn == 0 {
			closeAll(files)
			return nil, nil, fmt.Errorf("receive %s: %w", cmd, io.ErrUnexpectedEOF)
		}
	}

	f, err := proto.ReadPayload(c.conn, hdr[:])
	if err != nil {
		closeAll(files)
		return nil, nil, fmt.Errorf("receive %s: %w", cmd, err)
	}
	if code := buffer.Code(f.Kind); code != buffer.CodeOK {
		closeAll(files)
		return nil, nil, &Error{Code: code, Message: string(f.Payload)}
	}
	return f.Payload, files, nil
}

func filesFrom(oob []byte) ([]*os.File, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}
	var files []*os.File
	for i := range msgs {
		fds, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		for _, fd := range fds {
			files = append(files, os.NewFile(uintptr(fd), fmt.Sprintf("gfxbuf-plane-%d", fd)))
		}
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
