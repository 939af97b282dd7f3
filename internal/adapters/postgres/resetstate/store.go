package resetstate

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

// Store keeps the reset marker in the single-row reset_marker table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context) (resetstate.Marker, bool, error) {
	if s.pool == nil {
		return resetstate.Marker{}, false, errors.New("nil postgres pool")
	}
	var day, at time.Time
	err := s.pool.QueryRow(ctx, `SELECT day, ran_at FROM reset_marker WHERE singleton = 1`).Scan(&day, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return resetstate.Marker{}, false, nil
		}
		return resetstate.Marker{}, false, err
	}
	return resetstate.Marker{Day: day.UTC(), At: at.UTC()}, true, nil
}

func (s *Store) Put(ctx context.Context, m resetstate.Marker) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reset_marker (singleton, day, ran_at) VALUES (1, $1, $2)
		ON CONFLICT (singleton) DO UPDATE SET day = EXCLUDED.day, ran_at = EXCLUDED.ran_at
	`, m.Day.UTC(), m.At.UTC())
	return err
}
