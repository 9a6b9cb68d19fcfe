package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Outcome classifies a position after a move.
type Outcome string

const (
	OutcomeNormal    Outcome = "normal"
	OutcomeCheck     Outcome = "check"
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeStalemate Outcome = "stalemate"
)

// Terminal reports whether no further moves are accepted.
func (o Outcome) Terminal() bool {
	return o == OutcomeCheckmate || o == OutcomeStalemate
}

// ErrIllegalMove is returned for any move the position does not admit,
// including unparseable move strings.
var ErrIllegalMove = errors.New("illegal move")

// StartFEN is the initial position of every session.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Result is the oracle's verdict on an accepted move.
type Result struct {
	UCI     string // normalized move string
	FEN     string
	SAN     string
	Outcome Outcome
}

// Apply replays history from the start position, then validates and applies
// one UCI move. History entries are trusted (they were validated when first
// applied); the candidate move is not. Rejection is ErrIllegalMove, state is
// never partially advanced.
func Apply(history []string, uci string) (Result, error) {
	game, err := replay(history)
	if err != nil {
		return Result{}, err
	}

	uci = strings.ToLower(strings.TrimSpace(uci))
	if uci == "" {
		return Result{}, ErrIllegalMove
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Result{}, ErrIllegalMove
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.Move(mv, nil); err != nil {
		return Result{}, ErrIllegalMove
	}

	return Result{UCI: uci, FEN: game.FEN(), SAN: san, Outcome: classify(game, san)}, nil
}

// Render returns a human-readable board diagram for the given history.
func Render(history []string) (string, error) {
	game, err := replay(history)
	if err != nil {
		return "", err
	}
	return game.Position().Board().Draw(), nil
}

func replay(history []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for i, mv := range history {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return game, nil
}

func classify(game *nchess.Game, san string) Outcome {
	switch game.Method() {
	case nchess.Checkmate:
		return OutcomeCheckmate
	case nchess.Stalemate:
		return OutcomeStalemate
	}
	// Forced draws the library declares on its own (insufficient material,
	// seventy-five moves, fivefold) have no tag of their own on this wire
	// schema; they end the session as stalemate.
	if game.Outcome() == nchess.Draw {
		return OutcomeStalemate
	}
	if strings.HasSuffix(san, "+") {
		return OutcomeCheck
	}
	return OutcomeNormal
}
