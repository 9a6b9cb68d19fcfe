package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chessline/internal/rules"
	"github.com/park285/chessline/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := session.Record{
		SessionID: 7,
		FEN:       "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		MovesUCI:  []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		MovesSAN:  []string{"f3", "e5", "g4", "Qh4#"},
		Status:    rules.OutcomeCheckmate,
		Winner:    rules.Black,
		StartedAt: time.Now().Add(-time.Minute),
		EndedAt:   time.Now(),
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatalf("record missing")
	}
	if got.Status != "checkmate" || got.Winner != "black" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.MovesUCI) != 4 || got.MovesSAN[3] != "Qh4#" {
		t.Fatalf("history mismatch: %+v", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Load(context.Background(), 404)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func TestStoreRejectsBadURL(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewStore("http://localhost:6379"); err == nil {
		t.Fatalf("expected error for bad scheme")
	}
}
