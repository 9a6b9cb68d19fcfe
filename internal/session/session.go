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

// Session owns the authoritative state of one paired game. All mutation and
// broadcast happens on the session's own goroutine; callers enqueue requests
// and never touch state directly.
type Session struct {
	id  int64
	log *zap.Logger

	white Peer // nil once the player disconnects
	black Peer

	fen    string
	moves  []string
	sans   []string
	turn   rules.Color
	status rules.Outcome
	winner rules.Color // set iff status is checkmate

	spectators map[string]Peer

	createdAt time.Time

	reqs     chan request
	done     chan struct{}
	stopOnce sync.Once

	onEmpty  func(*Session)
	onFinish func(Record)
}

type request interface{}

type moveReq struct {
	from Peer
	uci  string
}

type attachReq struct{ peer Peer }

type leaveReq struct{ peer Peer }

type snapshotReq struct{ reply chan Snapshot }

func newSession(id int64, white, black Peer, onEmpty func(*Session), onFinish func(Record)) *Session {
	return &Session{
		id:         id,
		log:        obslog.L().With(zap.Int64("session_id", id)),
		white:      white,
		black:      black,
		fen:        rules.StartFEN,
		turn:       rules.White,
		status:     rules.OutcomeNormal,
		spectators: make(map[string]Peer),
		createdAt:  time.Now(),
		reqs:       make(chan request, 32),
		done:       make(chan struct{}),
		onEmpty:    onEmpty,
		onFinish:   onFinish,
	}
}

// ID returns the session's registry id.
func (s *Session) ID() int64 { return s.id }

func (s *Session) start() { go s.run() }

func (s *Session) stop() { s.stopOnce.Do(func() { close(s.done) }) }

// SubmitMove enqueues a move from the given connection. Ordering within one
// session is the order requests land on the actor's queue.
func (s *Session) SubmitMove(from Peer, uci string) {
	s.submit(moveReq{from: from, uci: uci})
}

// AttachSpectator enqueues a spectator join; the actor inserts the peer and
// sends the mandatory state snapshot.
func (s *Session) AttachSpectator(p Peer) {
	s.submit(attachReq{peer: p})
}

// Leave enqueues disconnect handling for the given connection. Safe to call
// more than once for the same peer.
func (s *Session) Leave(p Peer) {
	s.submit(leaveReq{peer: p})
}

// Snapshot asks the actor for a copy of current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.reqs <- snapshotReq{reply: reply}:
	case <-s.done:
		return Snapshot{}, ErrUnknownSession
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrUnknownSession
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) submit(req request) {
	select {
	case s.reqs <- req:
	case <-s.done:
	}
}

func (s *Session) run() {
	for {
		select {
		case req := <-s.reqs:
			switch r := req.(type) {
			case moveReq:
				s.handleMove(r.from, r.uci)
			case attachReq:
				s.handleAttach(r.peer)
			case leaveReq:
				s.handleLeave(r.peer)
			case snapshotReq:
				r.reply <- s.snapshot()
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) handleMove(from Peer, uci string) {
	mover, isPlayer := s.colorOf(from)
	if !isPlayer {
		s.sendTo(from, wire.NewError("only players may move"))
		return
	}
	if s.status.Terminal() {
		// A late move after the game concluded: reject without touching state.
		s.sendTo(from, wire.NewInvalid())
		return
	}
	if mover != s.turn {
		s.sendTo(from, wire.NewNotYourTurn())
		return
	}

	res, err := rules.Apply(s.moves, uci)
	if err != nil {
		s.sendTo(from, wire.NewInvalid())
		s.log.Debug("session_move_rejected", zap.String("color", string(mover)), zap.String("uci", uci))
		return
	}

	s.moves = append(s.moves, res.UCI)
	s.sans = append(s.sans, res.SAN)
	s.fen = res.FEN
	s.status = res.Outcome
	// Turn flips even on a terminal outcome; it is frozen and never consulted
	// again. The winner is the mover, not the post-flip turn holder.
	s.turn = mover.Other()

	var turnPtr, winnerPtr *string
	if !res.Outcome.Terminal() {
		turnPtr = strPtr(string(s.turn))
	}
	if res.Outcome == rules.OutcomeCheckmate {
		s.winner = mover
		winnerPtr = strPtr(string(mover))
	}

	s.broadcast(wire.NewUpdate(res.UCI, res.FEN, turnPtr, string(res.Outcome), winnerPtr))
	s.log.Info("session_move",
		zap.String("color", string(mover)),
		zap.String("uci", res.UCI),
		zap.String("san", res.SAN),
		zap.String("status", string(res.Outcome)),
	)

	if res.Outcome.Terminal() && s.onFinish != nil {
		s.onFinish(s.record())
	}
}

func (s *Session) handleAttach(p Peer) {
	s.spectators[p.ID()] = p

	// Snapshot-on-join: late joiners see current state without prior frames.
	var turnPtr, winnerPtr *string
	if !s.status.Terminal() {
		turnPtr = strPtr(string(s.turn))
	}
	if s.status == rules.OutcomeCheckmate {
		winnerPtr = strPtr(string(s.winner))
	}
	if err := p.Send(wire.NewUpdate("", s.fen, turnPtr, string(s.status), winnerPtr)); err != nil {
		delete(s.spectators, p.ID())
		_ = p.Close()
		return
	}
	s.log.Info("spectator_attach", zap.String("conn_id", p.ID()), zap.Int("spectators", len(s.spectators)))
}

func (s *Session) handleLeave(p Peer) {
	switch {
	case s.white != nil && s.white.ID() == p.ID():
		s.playerGone(rules.White, s.white)
		s.white = nil
	case s.black != nil && s.black.ID() == p.ID():
		s.playerGone(rules.Black, s.black)
		s.black = nil
	default:
		if _, ok := s.spectators[p.ID()]; ok {
			delete(s.spectators, p.ID())
			_ = p.Close()
			s.log.Info("spectator_detach", zap.String("conn_id", p.ID()), zap.Int("spectators", len(s.spectators)))
		}
	}
	s.maybeReclaim()
}

func (s *Session) playerGone(color rules.Color, p Peer) {
	_ = p.Close()
	s.log.Info("player_disconnect", zap.String("color", string(color)))
	if !s.status.Terminal() {
		notice := wire.NewSystem(string(color) + " left the game")
		if other := s.player(color.Other()); other != nil {
			s.sendTo(other, notice)
		}
		for _, sp := range s.spectatorList() {
			if err := sp.Send(notice); err != nil {
				delete(s.spectators, sp.ID())
				_ = sp.Close()
			}
		}
	}
}

// broadcast delivers one message to both players and every spectator.
// Failures are isolated per recipient: a dead spectator is pruned, a dead
// player goes through disconnect handling. The caller never sees an error.
func (s *Session) broadcast(v any) {
	if s.white != nil {
		if err := s.white.Send(v); err != nil {
			w := s.white
			s.white = nil
			s.playerGone(rules.White, w)
		}
	}
	if s.black != nil {
		if err := s.black.Send(v); err != nil {
			b := s.black
			s.black = nil
			s.playerGone(rules.Black, b)
		}
	}
	for _, sp := range s.spectatorList() {
		if err := sp.Send(v); err != nil {
			delete(s.spectators, sp.ID())
			_ = sp.Close()
			s.log.Debug("spectator_pruned", zap.String("conn_id", sp.ID()))
		}
	}
	s.maybeReclaim()
}

// sendTo replies to a single peer, routing delivery failure into disconnect
// handling for that peer only.
func (s *Session) sendTo(p Peer, v any) {
	if err := p.Send(v); err != nil {
		s.handleLeave(p)
	}
}

func (s *Session) maybeReclaim() {
	if s.white != nil || s.black != nil || len(s.spectators) > 0 {
		return
	}
	s.log.Info("session_reclaim", zap.String("status", string(s.status)), zap.Int("moves", len(s.moves)))
	s.stop()
	if s.onEmpty != nil {
		s.onEmpty(s)
	}
}

func (s *Session) colorOf(p Peer) (rules.Color, bool) {
	if s.white != nil && s.white.ID() == p.ID() {
		return rules.White, true
	}
	if s.black != nil && s.black.ID() == p.ID() {
		return rules.Black, true
	}
	return "", false
}

func (s *Session) player(color rules.Color) Peer {
	if color == rules.White {
		return s.white
	}
	return s.black
}

func (s *Session) spectatorList() []Peer {
	out := make([]Peer, 0, len(s.spectators))
	for _, sp := range s.spectators {
		out = append(out, sp)
	}
	return out
}

func (s *Session) snapshot() Snapshot {
	players := 0
	if s.white != nil {
		players++
	}
	if s.black != nil {
		players++
	}
	return Snapshot{
		ID:         s.id,
		FEN:        s.fen,
		Turn:       s.turn,
		Status:     s.status,
		Winner:     s.winner,
		Moves:      len(s.moves),
		Players:    players,
		Spectators: len(s.spectators),
	}
}

func (s *Session) record() Record {
	return Record{
		SessionID: s.id,
		FEN:       s.fen,
		MovesUCI:  append([]string(nil), s.moves...),
		MovesSAN:  append([]string(nil), s.sans...),
		Status:    s.status,
		Winner:    s.winner,
		StartedAt: s.createdAt,
		EndedAt:   time.Now(),
	}
}

func strPtr(s string) *string { return &s }
