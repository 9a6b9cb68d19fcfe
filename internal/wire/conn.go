package wire

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn wraps one accepted transport stream with frame IO. Writes are
// serialized so the session actor and the registry may both send; Close is
// idempotent because disconnect handling can race the read loop.
type Conn struct {
	id  string
	raw net.Conn
	br  *bufio.Reader

	idleTimeout time.Duration

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{
		id:  uuid.NewString(),
		raw: raw,
		br:  bufio.NewReader(raw),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() string {
	if addr := c.raw.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// SetIdleTimeout bounds each blocking read. Zero disables the bound.
func (c *Conn) SetIdleTimeout(d time.Duration) { c.idleTimeout = d }

// Send writes one frame. Safe for concurrent use.
func (c *Conn) Send(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.raw, v)
}

// Recv reads one raw frame payload.
func (c *Conn) Recv() ([]byte, error) {
	if c.idleTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.idleTimeout))
	} else {
		_ = c.raw.SetReadDeadline(time.Time{})
	}
	return ReadFrame(c.br)
}

// RecvClient reads and strictly decodes one client frame.
func (c *Conn) RecvClient() (ClientMessage, error) {
	raw, err := c.Recv()
	if err != nil {
		return nil, err
	}
	return DecodeClient(raw)
}

// RecvServer reads and decodes one server frame (client-side use).
func (c *Conn) RecvServer() (ServerMessage, error) {
	raw, err := c.Recv()
	if err != nil {
		return nil, err
	}
	return DecodeServer(raw)
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.raw.Close() })
	return c.closeErr
}
