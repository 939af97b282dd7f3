package bookingrepo

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
	"github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
)

// Repo is a Postgres implementation of bookingrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const bookingColumns = `id, member_id, booking_date, created_at, canceled_at`

// Create takes an advisory lock keyed by the booking date so bookings for different
// dates do not contend.
func (r *Repo) Create(ctx context.Context, b domain.Booking, capacity int) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(b.ID))
	if err != nil {
		return fmt.Errorf("invalid booking id: %w", err)
	}
	mid, err := uuid.Parse(string(b.MemberID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}
	date := b.Date.UTC()
	dayKey := int32(date.Unix() / 86400)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, postgres.LockSpaceBookings, dayKey); err != nil {
			return err
		}
		var mine, total int
		if err := tx.QueryRow(ctx, `
			SELECT
				count(*) FILTER (WHERE member_id = $2),
				count(*)
			FROM bookings
			WHERE booking_date = $1 AND canceled_at IS NULL
		`, date, mid).Scan(&mine, &total); err != nil {
			return err
		}
		if mine > 0 {
			return bookingrepo.ErrAlreadyBooked
		}
		if total >= capacity {
			return bookingrepo.ErrFullyBooked
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES ($1, $2, $3, $4, NULL)
		`, id, mid, date, b.CreatedAt.UTC())
		if postgres.IsUniqueViolation(err, "bookings_one_active_per_member_date") {
			return bookingrepo.ErrAlreadyBooked
		}
		return err
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.BookingID) (domain.Booking, error) {
	if r.pool == nil {
		return domain.Booking{}, errors.New("nil postgres pool")
	}
	bid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Booking{}, bookingrepo.ErrNotFound
	}
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bid))
}

func (r *Repo) Cancel(ctx context.Context, id domain.BookingID, at time.Time) (domain.Booking, error) {
	if r.pool == nil {
		return domain.Booking{}, errors.New("nil postgres pool")
	}
	bid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Booking{}, bookingrepo.ErrNotFound
	}
	return scanBooking(r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET canceled_at = COALESCE(canceled_at, $2)
		WHERE id = $1
		RETURNING `+bookingColumns,
		bid, at.UTC(),
	))
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Booking, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []domain.Booking{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE member_id = $1
		ORDER BY booking_date ASC, created_at ASC
	`, mid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) CountActiveOnDate(ctx context.Context, date time.Time) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM bookings WHERE booking_date = $1 AND canceled_at IS NULL
	`, date.UTC()).Scan(&n)
	return n, err
}

func scanBooking(row interface {
	Scan(dest ...any) error
}) (domain.Booking, error) {
	var (
		id         uuid.UUID
		memberID   uuid.UUID
		date       time.Time
		createdAt  time.Time
		canceledAt *time.Time
	)
	if err := row.Scan(&id, &memberID, &date, &createdAt, &canceledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, bookingrepo.ErrNotFound
		}
		return domain.Booking{}, err
	}
	if canceledAt != nil {
		v := canceledAt.UTC()
		canceledAt = &v
	}
	return domain.Booking{
		ID:         domain.BookingID(id.String()),
		MemberID:   domain.MemberID(memberID.String()),
		Date:       date.UTC(),
		CreatedAt:  createdAt.UTC(),
		CanceledAt: canceledAt,
	}, nil
}
