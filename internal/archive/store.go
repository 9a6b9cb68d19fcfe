package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chessline/internal/session"
)

const recordTTL = 24 * time.Hour

// Store keeps finished-game records in Redis. Live sessions are never
// written; the archive only sees a session once it has concluded.
type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for archive store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// GameRecord is the JSON document stored per concluded session.
type GameRecord struct {
	SessionID int64     `json:"session_id"`
	FEN       string    `json:"fen"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	Status    string    `json:"status"`
	Winner    string    `json:"winner,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Save implements session.Archiver.
func (s *Store) Save(ctx context.Context, rec session.Record) error {
	doc := GameRecord{
		SessionID: rec.SessionID,
		FEN:       rec.FEN,
		MovesUCI:  rec.MovesUCI,
		MovesSAN:  rec.MovesSAN,
		Status:    string(rec.Status),
		Winner:    string(rec.Winner),
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}
	raw, err := json.Marshal(&doc)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, gameKey(rec.SessionID), raw, recordTTL).Err()
}

// Load returns a stored record, or nil when absent or expired.
func (s *Store) Load(ctx context.Context, sessionID int64) (*GameRecord, error) {
	raw, err := s.rdb.Get(ctx, gameKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc GameRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func gameKey(id int64) string { return "chessline:game:" + strconv.FormatInt(id, 10) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
