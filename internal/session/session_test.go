package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/chessline/internal/rules"
	"github.com/park285/chessline/internal/wire"
)

// fakePeer records everything the session sends it and can be flipped into a
// failing state to exercise delivery-failure isolation.
type fakePeer struct {
	id string

	mu     sync.Mutex
	msgs   []any
	fail   bool
	closed bool
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("peer gone")
	}
	p.msgs = append(p.msgs, v)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) setFail(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = v
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func (p *fakePeer) all() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.msgs...)
}

func (p *fakePeer) last(t *testing.T) any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		t.Fatalf("peer %s received nothing", p.id)
	}
	return p.msgs[len(p.msgs)-1]
}

func startSession(t *testing.T) (*Session, *fakePeer, *fakePeer) {
	t.Helper()
	w, b := newFakePeer("w"), newFakePeer("b")
	s := newSession(1, w, b, nil, nil)
	s.start()
	t.Cleanup(s.stop)
	return s, w, b
}

// flush drains the actor queue: Snapshot travels the same channel, so its
// reply means every prior request was handled.
func flush(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func TestMoveBroadcastAndTurnFlip(t *testing.T) {
	s, w, b := startSession(t)

	s.SubmitMove(w, "e2e4")
	snap := flush(t, s)
	if snap.Turn != rules.Black || snap.Moves != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	for _, p := range []*fakePeer{w, b} {
		up, ok := p.last(t).(wire.Update)
		if !ok {
			t.Fatalf("peer %s: expected update, got %#v", p.id, p.last(t))
		}
		if up.Move != "e2e4" || up.Status != "normal" {
			t.Fatalf("unexpected update: %+v", up)
		}
		if up.Turn == nil || *up.Turn != "black" {
			t.Fatalf("turn should be black: %+v", up)
		}
		if up.Winner != nil {
			t.Fatalf("winner should be nil mid-game")
		}
	}

	s.SubmitMove(b, "e7e5")
	if snap := flush(t, s); snap.Turn != rules.White || snap.Moves != 2 {
		t.Fatalf("unexpected snapshot after reply: %+v", snap)
	}
}

func TestIllegalMoveRepliesOnlyToSender(t *testing.T) {
	s, w, b := startSession(t)

	s.SubmitMove(w, "e2e5")
	flush(t, s)

	if _, ok := w.last(t).(wire.Invalid); !ok {
		t.Fatalf("expected invalid reply, got %#v", w.last(t))
	}
	if b.count() != 0 {
		t.Fatalf("opponent must not see rejected moves, got %d frames", b.count())
	}
	if snap := flush(t, s); snap.Moves != 0 || snap.Turn != rules.White {
		t.Fatalf("state advanced on rejected move: %+v", snap)
	}
}

func TestOutOfTurnMove(t *testing.T) {
	s, w, b := startSession(t)

	s.SubmitMove(b, "e7e5")
	flush(t, s)
	if _, ok := b.last(t).(wire.NotYourTurn); !ok {
		t.Fatalf("expected not_your_turn, got %#v", b.last(t))
	}
	if w.count() != 0 {
		t.Fatalf("white must not be notified")
	}
}

func TestSpectatorSnapshotOnJoin(t *testing.T) {
	s, w, _ := startSession(t)

	s.SubmitMove(w, "e2e4")
	flush(t, s)

	sp := newFakePeer("sp")
	s.AttachSpectator(sp)
	flush(t, s)

	up, ok := sp.last(t).(wire.Update)
	if !ok {
		t.Fatalf("expected snapshot update, got %#v", sp.last(t))
	}
	if up.Move != "" {
		t.Fatalf("snapshot must carry no move, got %q", up.Move)
	}
	if up.Turn == nil || *up.Turn != "black" {
		t.Fatalf("snapshot turn: %+v", up)
	}
}

func TestSpectatorCannotMove(t *testing.T) {
	s, w, _ := startSession(t)

	sp := newFakePeer("sp")
	s.AttachSpectator(sp)
	s.SubmitMove(sp, "e2e4")
	flush(t, s)

	er, ok := sp.last(t).(wire.ErrorReply)
	if !ok {
		t.Fatalf("expected error reply, got %#v", sp.last(t))
	}
	if er.Message != "only players may move" {
		t.Fatalf("unexpected message: %q", er.Message)
	}
	if w.count() != 0 {
		t.Fatalf("players must not see spectator noise")
	}
}

func TestCheckmateEndsSession(t *testing.T) {
	var rec Record
	var recOnce sync.Once
	done := make(chan struct{})
	w, b := newFakePeer("w"), newFakePeer("b")
	s := newSession(1, w, b, nil, func(r Record) {
		recOnce.Do(func() { rec = r; close(done) })
	})
	s.start()
	t.Cleanup(s.stop)

	// fool's mate, black wins
	s.SubmitMove(w, "f2f3")
	s.SubmitMove(b, "e7e5")
	s.SubmitMove(w, "g2g4")
	s.SubmitMove(b, "d8h4")
	flush(t, s)

	up, ok := w.last(t).(wire.Update)
	if !ok {
		t.Fatalf("expected final update, got %#v", w.last(t))
	}
	if up.Status != "checkmate" {
		t.Fatalf("expected checkmate, got %s", up.Status)
	}
	if up.Turn != nil {
		t.Fatalf("terminal update must carry no turn")
	}
	// the winner is the mover, not whoever would be on turn
	if up.Winner == nil || *up.Winner != "black" {
		t.Fatalf("unexpected winner: %+v", up.Winner)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("finish callback not invoked")
	}
	if rec.Status != rules.OutcomeCheckmate || rec.Winner != rules.Black {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.MovesUCI) != 4 || len(rec.MovesSAN) != 4 {
		t.Fatalf("record history incomplete: %+v", rec)
	}

	// the position is frozen: any further move is invalid
	s.SubmitMove(w, "a2a3")
	flush(t, s)
	if _, ok := w.last(t).(wire.Invalid); !ok {
		t.Fatalf("expected invalid after game over, got %#v", w.last(t))
	}
}

func TestDeadSpectatorIsPruned(t *testing.T) {
	s, w, b := startSession(t)

	sp := newFakePeer("sp")
	s.AttachSpectator(sp)
	flush(t, s)
	sp.setFail(true)

	s.SubmitMove(w, "e2e4")
	snap := flush(t, s)

	if snap.Spectators != 0 {
		t.Fatalf("dead spectator not pruned: %+v", snap)
	}
	if !sp.isClosed() {
		t.Fatalf("pruned spectator not closed")
	}
	// both players still got the update
	if _, ok := w.last(t).(wire.Update); !ok {
		t.Fatalf("white missed update")
	}
	if _, ok := b.last(t).(wire.Update); !ok {
		t.Fatalf("black missed update")
	}
}

func TestDeadPlayerBecomesDisconnect(t *testing.T) {
	s, w, b := startSession(t)

	sp := newFakePeer("sp")
	s.AttachSpectator(sp)
	flush(t, s)

	b.setFail(true)
	s.SubmitMove(w, "e2e4")
	snap := flush(t, s)

	if snap.Players != 1 {
		t.Fatalf("dead player not removed: %+v", snap)
	}
	if !b.isClosed() {
		t.Fatalf("dead player not closed")
	}
	// the spectator sees the leave notice and still gets the move update
	var sawNotice, sawMove bool
	for _, m := range sp.all() {
		switch v := m.(type) {
		case wire.System:
			sawNotice = v.Content == "black left the game"
		case wire.Update:
			if v.Move == "e2e4" {
				sawMove = true
			}
		}
	}
	if !sawNotice || !sawMove {
		t.Fatalf("spectator frames incomplete: %#v", sp.all())
	}
	// white saw the update before the leave notice
	sys, ok := w.last(t).(wire.System)
	if !ok || sys.Content != "black left the game" {
		t.Fatalf("white should end on leave notice, got %#v", w.last(t))
	}
}

func TestLeaveNotifiesRemaining(t *testing.T) {
	s, w, b := startSession(t)

	s.Leave(w)
	flush(t, s)

	sys, ok := b.last(t).(wire.System)
	if !ok {
		t.Fatalf("expected system notice, got %#v", b.last(t))
	}
	if sys.Content != "white left the game" {
		t.Fatalf("unexpected notice: %q", sys.Content)
	}
	if !w.isClosed() {
		t.Fatalf("leaver not closed")
	}

	// leave is idempotent
	s.Leave(w)
	if snap := flush(t, s); snap.Players != 1 {
		t.Fatalf("unexpected players: %+v", snap)
	}
}

func TestReclaimWhenEmpty(t *testing.T) {
	var emptied sync.WaitGroup
	emptied.Add(1)
	w, b := newFakePeer("w"), newFakePeer("b")
	s := newSession(1, w, b, func(*Session) { emptied.Done() }, nil)
	s.start()

	sp := newFakePeer("sp")
	s.AttachSpectator(sp)
	flush(t, s)

	s.Leave(w)
	s.Leave(b)
	// spectators keep the session alive
	if snap := flush(t, s); snap.Players != 0 || snap.Spectators != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	s.Leave(sp)
	done := make(chan struct{})
	go func() { emptied.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("session not reclaimed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.Snapshot(ctx); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("stopped session should refuse snapshots, got %v", err)
	}
}
