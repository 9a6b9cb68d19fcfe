package server

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessline/internal/obslog"
	"github.com/park285/chessline/internal/session"
	"github.com/park285/chessline/internal/wire"
)

// Acceptor owns the game service listener. It reads exactly one
// classification frame per connection and routes it: spectator declarations
// go to the registry's attach path, everything else enters the pairing queue.
type Acceptor struct {
	registry *session.Registry

	// HandshakeTimeout bounds the classification read.
	HandshakeTimeout time.Duration
	// IdleTimeout, when non-zero, bounds every subsequent read so abandoned
	// connections are eventually reclaimed.
	IdleTimeout time.Duration

	log *zap.Logger
}

func NewAcceptor(reg *session.Registry) *Acceptor {
	return &Acceptor{
		registry:         reg,
		HandshakeTimeout: 10 * time.Second,
		log:              obslog.L(),
	}
}

// ListenAndServe accepts game connections on addr until the listener fails.
func (a *Acceptor) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	a.log.Info("game_listen", zap.String("addr", addr))
	return a.Serve(ln)
}

// Serve accepts connections from ln, one goroutine per connection.
func (a *Acceptor) Serve(ln net.Listener) error {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go a.Handle(raw)
	}
}

// Handle classifies one accepted transport stream and hands it off. Exported
// so alternate transports (the websocket gateway) share the same path.
func (a *Acceptor) Handle(raw net.Conn) {
	c := wire.NewConn(raw)

	c.SetIdleTimeout(a.HandshakeTimeout)
	first, err := c.Recv()
	if err != nil {
		a.log.Debug("classify_read_error", zap.String("remote", c.RemoteAddr()), zap.Error(err))
		_ = c.Close()
		return
	}
	msg, err := wire.Classify(first)
	if err != nil {
		// Malformed classification: close with no session side effects.
		a.log.Warn("classify_malformed", zap.String("remote", c.RemoteAddr()), zap.Error(err))
		_ = c.Close()
		return
	}
	c.SetIdleTimeout(a.IdleTimeout)

	switch m := msg.(type) {
	case wire.SpectatorHello:
		s, err := a.registry.AttachSpectator(m.GameID, c)
		if err != nil {
			return
		}
		a.drainSpectator(c, s)
	case wire.PlayerHello:
		a.log.Info("player_accept", zap.String("remote", c.RemoteAddr()), zap.String("conn_id", c.ID()))
		a.registry.EnqueuePlayer(c)
	}
}

// drainSpectator consumes the read side of a spectator connection so its
// end-of-stream is observed promptly. Spectators have nothing to say.
func (a *Acceptor) drainSpectator(c *wire.Conn, s *session.Session) {
	// Spectators may legitimately stay silent forever.
	c.SetIdleTimeout(0)
	defer func() {
		s.Leave(c)
		_ = c.Close()
	}()
	for {
		if _, err := c.Recv(); err != nil {
			return
		}
	}
}
