package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chessline/internal/rules"
	"github.com/park285/chessline/internal/session"
)

// Repository upserts final game results into Postgres, including a generated
// PGN transcript.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS chessline_games (
        session_id  BIGINT PRIMARY KEY,
        fen         TEXT NOT NULL,
        status      TEXT NOT NULL,
        winner      TEXT,
        moves_uci   TEXT NOT NULL,
        moves_san   TEXT NOT NULL,
        pgn         TEXT NOT NULL,
        started_at  TIMESTAMPTZ NOT NULL,
        ended_at    TIMESTAMPTZ NOT NULL,
        duration_ms BIGINT NOT NULL
    )`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Save implements session.Archiver.
func (r *Repository) Save(ctx context.Context, rec session.Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	movesUCIRaw, _ := json.Marshal(rec.MovesUCI)
	movesSANRaw, _ := json.Marshal(rec.MovesSAN)
	duration := rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO chessline_games (
        session_id, fen, status, winner, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
      ON CONFLICT (session_id) DO UPDATE SET
        fen=EXCLUDED.fen,
        status=EXCLUDED.status,
        winner=EXCLUDED.winner,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.SessionID, rec.FEN, string(rec.Status), string(rec.Winner),
		string(movesUCIRaw), string(movesSANRaw), BuildPGN(rec),
		rec.StartedAt, rec.EndedAt, duration,
	)
	return err
}

// BuildPGN renders a minimal PGN transcript for a concluded session.
func BuildPGN(rec session.Record) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"chessline\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[White \"white\"]\n[Black \"black\"]\n")
	b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", rec.Status))
	result := pgnResult(rec)
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", (i/2)+1, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func pgnResult(rec session.Record) string {
	switch {
	case rec.Status == rules.OutcomeCheckmate && rec.Winner == rules.White:
		return "1-0"
	case rec.Status == rules.OutcomeCheckmate && rec.Winner == rules.Black:
		return "0-1"
	case rec.Status == rules.OutcomeStalemate:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// Multi fans one record out to several archivers; the first error wins but
// every archiver is attempted.
type Multi []session.Archiver

func (m Multi) Save(ctx context.Context, rec session.Record) error {
	var first error
	for _, a := range m {
		if err := a.Save(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
