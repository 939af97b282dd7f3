package sessionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

// Repo is a Postgres implementation of sessionrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const sessionColumns = `id, member_id, checked_in_at, checked_out_at, auto_closed`

// Open serializes check-ins with a transaction-scoped advisory lock so the count and
// the insert observe the same occupancy.
func (r *Repo) Open(ctx context.Context, s domain.Session, capacity int) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	mid, err := uuid.Parse(string(s.MemberID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, 0)`, postgres.LockSpaceSessions); err != nil {
			return err
		}

		var mine, total int
		if err := tx.QueryRow(ctx, `
			SELECT
				count(*) FILTER (WHERE member_id = $1),
				count(*)
			FROM sessions
			WHERE checked_out_at IS NULL
		`, mid).Scan(&mine, &total); err != nil {
			return err
		}
		if mine > 0 {
			return sessionrepo.ErrAlreadyOpen
		}
		if total >= capacity {
			return sessionrepo.ErrCapacityReached
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, member_id, checked_in_at, checked_out_at, auto_closed)
			VALUES ($1, $2, $3, NULL, false)
		`, id, mid, s.CheckedInAt.UTC())
		if postgres.IsUniqueViolation(err, "sessions_one_open_per_member") {
			return sessionrepo.ErrAlreadyOpen
		}
		return err
	})
}

func (r *Repo) Close(ctx context.Context, memberID domain.MemberID, at time.Time) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET checked_out_at = $2, auto_closed = false
		WHERE member_id = $1 AND checked_out_at IS NULL
		RETURNING `+sessionColumns,
		mid, at.UTC(),
	)
	return scanSession(row)
}

func (r *Repo) CloseByID(ctx context.Context, id domain.SessionID, at time.Time) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET checked_out_at = COALESCE(checked_out_at, $2)
		WHERE id = $1
		RETURNING `+sessionColumns,
		sid, at.UTC(),
	)
	return scanSession(row)
}

func (r *Repo) GetOpenForMember(ctx context.Context, memberID domain.MemberID) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE member_id = $1 AND checked_out_at IS NULL
	`, mid)
	return scanSession(row)
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.Session, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	return r.query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE checked_out_at IS NULL
		ORDER BY checked_in_at ASC, id ASC
	`)
}

func (r *Repo) CountOpen(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE checked_out_at IS NULL`).Scan(&n)
	return n, err
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID, limit int) ([]domain.Session, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []domain.Session{}, nil
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return r.query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE member_id = $1
		ORDER BY checked_in_at DESC, id DESC
		LIMIT $2
	`, mid, lim)
}

func (r *Repo) CloseAllOpen(ctx context.Context, at time.Time) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET checked_out_at = $1, auto_closed = true
		WHERE checked_out_at IS NULL
	`, at.UTC())
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row interface {
	Scan(dest ...any) error
}) (domain.Session, error) {
	var (
		id           uuid.UUID
		memberID     uuid.UUID
		checkedInAt  time.Time
		checkedOutAt *time.Time
		autoClosed   bool
	)
	if err := row.Scan(&id, &memberID, &checkedInAt, &checkedOutAt, &autoClosed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, sessionrepo.ErrNotFound
		}
		return domain.Session{}, err
	}
	if checkedOutAt != nil {
		v := checkedOutAt.UTC()
		checkedOutAt = &v
	}
	return domain.Session{
		ID:           domain.SessionID(id.String()),
		MemberID:     domain.MemberID(memberID.String()),
		CheckedInAt:  checkedInAt.UTC(),
		CheckedOutAt: checkedOutAt,
		AutoClosed:   autoClosed,
	}, nil
}
