package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessline/internal/obslog"
	"github.com/park285/chessline/internal/rules"
	"github.com/park285/chessline/internal/wire"
)

// Registry pairs waiting player connections into sessions and routes
// spectator joins. It is the only place sessions are created, so pairing and
// session-map insertion happen under one lock.
type Registry struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*Session
	pending  []Conn

	archiver Archiver
	log      *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		nextID:   1,
		sessions: make(map[int64]*Session),
		log:      obslog.L(),
	}
}

// SetArchiver wires an optional store for concluded sessions.
func (r *Registry) SetArchiver(a Archiver) { r.archiver = a }

// EnqueuePlayer adds a player connection to the FIFO pending queue. A lone
// waiter gets a wait notice; the moment a second connection is present both
// are consumed atomically into a fresh session, first popped playing white.
func (r *Registry) EnqueuePlayer(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, c)
	if len(r.pending) == 1 {
		if err := c.Send(wire.NewWait()); err != nil {
			r.pending = r.pending[:0]
			_ = c.Close()
			r.log.Debug("pending_player_lost", zap.String("conn_id", c.ID()))
		}
		return
	}
	r.pairLocked()
}

func (r *Registry) pairLocked() {
	for len(r.pending) >= 2 {
		white, black := r.pending[0], r.pending[1]
		r.pending = r.pending[2:]

		id := r.nextID
		r.nextID++

		s := newSession(id, white, black, r.remove, r.finish)
		r.sessions[id] = s

		whiteErr := white.Send(wire.NewInit(string(rules.White)))
		blackErr := black.Send(wire.NewInit(string(rules.Black)))
		if whiteErr != nil || blackErr != nil {
			// A waiter died in the queue: unwind the session and give the
			// survivor its place back at the head of the line.
			delete(r.sessions, id)
			s.stop()
			if whiteErr != nil {
				_ = white.Close()
			}
			if blackErr != nil {
				_ = black.Close()
			}
			var survivor Conn
			if whiteErr == nil {
				survivor = white
			} else if blackErr == nil {
				survivor = black
			}
			if survivor != nil {
				r.pending = append([]Conn{survivor}, r.pending...)
				if len(r.pending) == 1 {
					if err := survivor.Send(wire.NewWait()); err != nil {
						r.pending = r.pending[1:]
						_ = survivor.Close()
					}
				}
			}
			continue
		}

		s.start()
		go r.playerLoop(white, s)
		go r.playerLoop(black, s)
		r.log.Info("session_create",
			zap.Int64("session_id", id),
			zap.String("white_conn", white.ID()),
			zap.String("black_conn", black.ID()),
		)
	}
}

// AttachSpectator routes a spectator connection to the named session. An
// unknown id gets an error reply and the connection is closed.
func (r *Registry) AttachSpectator(gameID int64, c Conn) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[gameID]
	r.mu.Unlock()
	if !ok {
		_ = c.Send(wire.NewError("Game not found"))
		_ = c.Close()
		r.log.Info("spectator_reject", zap.Int64("session_id", gameID), zap.String("conn_id", c.ID()))
		return nil, ErrUnknownSession
	}
	s.AttachSpectator(c)
	return s, nil
}

// RemovePending drops a connection from the waiting queue, for waiters that
// disconnect before an opponent arrives.
func (r *Registry) RemovePending(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pending {
		if p.ID() == c.ID() {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

// Lookup returns the session with the given id, if present.
func (r *Registry) Lookup(gameID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// Snapshots collects a state snapshot from every live session.
func (r *Registry) Snapshots(ctx context.Context) []Snapshot {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// playerLoop reads move frames until the connection dies or violates the
// protocol, then runs disconnect handling. Exactly this loop observing
// stream end keeps one connection's failure from blocking any other.
func (r *Registry) playerLoop(c Conn, s *Session) {
	defer func() {
		s.Leave(c)
		_ = c.Close()
	}()
	for {
		msg, err := c.RecvClient()
		if err != nil {
			r.log.Debug("player_read_end", zap.String("conn_id", c.ID()), zap.Error(err))
			return
		}
		switch m := msg.(type) {
		case wire.Move:
			s.SubmitMove(c, m.Move)
		default:
			r.log.Warn("player_protocol_violation", zap.String("conn_id", c.ID()))
			return
		}
	}
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()
}

func (r *Registry) finish(rec Record) {
	if r.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.archiver.Save(ctx, rec); err != nil {
			r.log.Error("session_archive_error", zap.Int64("session_id", rec.SessionID), zap.Error(err))
			return
		}
		r.log.Info("session_archive", zap.Int64("session_id", rec.SessionID), zap.String("status", string(rec.Status)))
	}()
}
