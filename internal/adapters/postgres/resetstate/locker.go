package resetstate

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
)

// Locker uses a session-level advisory lock held on a dedicated pool connection.
// The ttl is not enforced: Postgres releases the lock if the connection dies.
type Locker struct {
	pool *pgxpool.Pool
}

func NewLocker(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	_ = ttl
	if l.pool == nil {
		return nil, false, errors.New("nil postgres pool")
	}
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1, hashtext($2))`, postgres.LockSpaceReset, name).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		defer conn.Release()
		_, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1, hashtext($2))`, postgres.LockSpaceReset, name)
		return err
	}
	return unlock, true, nil
}
