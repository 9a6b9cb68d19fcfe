package session

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chessline/internal/rules"
	"github.com/park285/chessline/internal/wire"
)

// Peer is the session layer's view of one connected participant. Send and
// Close must tolerate concurrent use; Close must be idempotent.
type Peer interface {
	ID() string
	Send(v any) error
	Close() error
}

// Conn extends Peer with inbound decoding, for connections the registry
// drives read loops on. *wire.Conn satisfies it.
type Conn interface {
	Peer
	RecvClient() (wire.ClientMessage, error)
}

// ErrUnknownSession is returned when a spectator targets a session id the
// registry does not hold.
var ErrUnknownSession = errors.New("game not found")

// Snapshot is a point-in-time copy of a session's authoritative state,
// produced on the session's own goroutine.
type Snapshot struct {
	ID         int64         `json:"id"`
	FEN        string        `json:"fen"`
	Turn       rules.Color   `json:"turn"`
	Status     rules.Outcome `json:"status"`
	Winner     rules.Color   `json:"winner,omitempty"`
	Moves      int           `json:"moves"`
	Players    int           `json:"players"`
	Spectators int           `json:"spectators"`
}

// Record is the final state of a concluded session, handed to the archiver.
type Record struct {
	SessionID int64
	FEN       string
	MovesUCI  []string
	MovesSAN  []string
	Status    rules.Outcome
	Winner    rules.Color
	StartedAt time.Time
	EndedAt   time.Time
}

// Archiver persists concluded sessions. Implementations must not block the
// caller's session; the registry invokes them off the actor goroutine.
type Archiver interface {
	Save(ctx context.Context, rec Record) error
}
