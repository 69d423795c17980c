package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

const (
	connectAttempts = 5
	connectBackoff  = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id TEXT PRIMARY KEY,
	doc     JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	username     TEXT PRIMARY KEY,
	rooms_joined INT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres keeps each room as a single JSONB document keyed by room id, so
// the registry's fetch-mutate-save cycle maps onto plain row reads and
// writes.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres dials the database, retrying a bounded number of times
// with backoff before giving up. The schema is applied on first connect.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	var pool *pgxpool.Pool
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.New(ctx, databaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err == nil {
			break
		}
		slog.Error("database connection failed", "attempt", attempt, "max", connectAttempts, "err", err)
		if attempt < connectAttempts {
			select {
			case <-time.After(connectBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) Find(ctx context.Context, roomID string) (*game.Room, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM rooms WHERE room_id = $1`, roomID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var room game.Room
	if err := json.Unmarshal(doc, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Postgres) Insert(ctx context.Context, room *game.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO rooms (room_id, doc) VALUES ($1, $2)`, room.ID, doc)
	return err
}

func (s *Postgres) Update(ctx context.Context, room *game.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE rooms SET doc = $2 WHERE room_id = $1`, room.ID, doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return game.ErrRoomNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, roomID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	return err
}

func (s *Postgres) ListAvailable(ctx context.Context) ([]*game.Room, error) {
	return s.list(ctx, `SELECT doc FROM rooms
		WHERE jsonb_array_length(doc->'members') < (doc->>'maxMembers')::int`)
}

func (s *Postgres) ListActive(ctx context.Context) ([]*game.Room, error) {
	return s.list(ctx, `SELECT doc FROM rooms WHERE doc->>'status' = 'active'`)
}

func (s *Postgres) list(ctx context.Context, query string) ([]*game.Room, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Room
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var room game.Room
		if err := json.Unmarshal(doc, &room); err != nil {
			return nil, err
		}
		out = append(out, &room)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteAll(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Postgres) TouchUser(ctx context.Context, username string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (username, rooms_joined) VALUES ($1, 1)
		ON CONFLICT (username) DO UPDATE SET rooms_joined = users.rooms_joined + 1`, username)
	return err
}
