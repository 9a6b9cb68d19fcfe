package chat

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessline/internal/obslog"
	"github.com/park285/chessline/internal/wire"
)

// Server is the chat side-channel: a broadcast room per game id, independent
// of the game service. A connection joins exactly one room with its first
// frame and relays text lines to everyone else in that room.
type Server struct {
	log *zap.Logger

	mu    sync.Mutex
	rooms map[int64]*room
}

type room struct {
	members map[string]*member
}

type member struct {
	conn  *wire.Conn
	color string
}

func NewServer() *Server {
	return &Server{
		log:   obslog.L(),
		rooms: make(map[int64]*room),
	}
}

// ListenAndServe accepts chat connections on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("chat_listen", zap.String("addr", addr))
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go s.Handle(raw)
	}
}

// Handle runs one chat connection: a join frame, then chat frames until
// end-of-stream or a protocol violation.
func (s *Server) Handle(raw net.Conn) {
	c := wire.NewConn(raw)

	first, err := c.Recv()
	if err != nil {
		_ = c.Close()
		return
	}
	msg, err := wire.DecodeChatClient(first)
	if err != nil {
		s.log.Warn("chat_malformed_join", zap.String("remote", c.RemoteAddr()), zap.Error(err))
		_ = c.Close()
		return
	}
	join, ok := msg.(wire.ChatJoin)
	if !ok {
		_ = c.Close()
		return
	}

	s.join(join.GameID, c, join.Color)
	defer s.leave(join.GameID, c, join.Color)

	for {
		raw, err := c.Recv()
		if err != nil {
			return
		}
		m, err := wire.DecodeChatClient(raw)
		if err != nil {
			s.log.Warn("chat_protocol_violation", zap.String("conn_id", c.ID()))
			return
		}
		post, ok := m.(wire.ChatPost)
		if !ok {
			// a second join is a protocol violation
			return
		}
		s.relay(join.GameID, c.ID(), wire.NewChatEvent(join.Color, post.Content, unixSeconds()))
	}
}

func (s *Server) join(gameID int64, c *wire.Conn, color string) {
	s.mu.Lock()
	rm, ok := s.rooms[gameID]
	if !ok {
		rm = &room{members: make(map[string]*member)}
		s.rooms[gameID] = rm
	}
	rm.members[c.ID()] = &member{conn: c, color: color}
	s.mu.Unlock()

	s.log.Info("chat_join", zap.Int64("game_id", gameID), zap.String("color", color))
	s.relay(gameID, c.ID(), wire.NewSystem(color+" joined the chat"))
}

func (s *Server) leave(gameID int64, c *wire.Conn, color string) {
	s.mu.Lock()
	rm, ok := s.rooms[gameID]
	if ok {
		delete(rm.members, c.ID())
		if len(rm.members) == 0 {
			delete(s.rooms, gameID)
		}
	}
	s.mu.Unlock()
	_ = c.Close()

	if ok {
		s.log.Info("chat_leave", zap.Int64("game_id", gameID), zap.String("color", color))
		s.relay(gameID, c.ID(), wire.NewSystem(color+" left the chat"))
	}
}

// relay fans a message out to every room member except the sender. Failed
// recipients are pruned; the sender never sees an error.
func (s *Server) relay(gameID int64, senderID string, v any) {
	s.mu.Lock()
	rm, ok := s.rooms[gameID]
	if !ok {
		s.mu.Unlock()
		return
	}
	targets := make([]*member, 0, len(rm.members))
	ids := make([]string, 0, len(rm.members))
	for id, m := range rm.members {
		if id != senderID {
			targets = append(targets, m)
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for i, m := range targets {
		if err := m.conn.Send(v); err != nil {
			s.mu.Lock()
			if rm, ok := s.rooms[gameID]; ok {
				delete(rm.members, ids[i])
				if len(rm.members) == 0 {
					delete(s.rooms, gameID)
				}
			}
			s.mu.Unlock()
			_ = m.conn.Close()
		}
	}
}

func unixSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
