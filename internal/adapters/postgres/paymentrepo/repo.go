package paymentrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
	pgmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	"github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
)

// Repo is a Postgres implementation of paymentrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p domain.SubscriptionPeriod) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid payment id: %w", err)
	}
	mid, err := uuid.Parse(string(p.MemberID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}
	by, err := uuid.Parse(string(p.RecordedBy))
	if err != nil {
		return fmt.Errorf("invalid recorder id: %w", err)
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO subscription_periods (
				id, member_id, plan, amount_cents, method, period_start, period_end, recorded_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			id, mid, string(p.Plan), p.AmountCents, string(p.Method),
			p.PeriodStart.UTC(), p.PeriodEnd.UTC(), by, p.CreatedAt.UTC(),
		); err != nil {
			return err
		}
		return pgmemberrepo.SetSubscription(ctx, tx, p.MemberID, p.Plan, p.PeriodEnd, p.CreatedAt)
	})
	if errors.Is(err, memberrepo.ErrNotFound) || postgres.IsForeignKeyViolation(err, "subscription_periods_member_id_fkey") {
		return paymentrepo.ErrMemberNotFound
	}
	return err
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.SubscriptionPeriod, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []domain.SubscriptionPeriod{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, plan, amount_cents, method, period_start, period_end, recorded_by, created_at
		FROM subscription_periods
		WHERE member_id = $1
		ORDER BY period_start DESC, created_at DESC
	`, mid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SubscriptionPeriod, 0)
	for rows.Next() {
		var (
			id, member, by       uuid.UUID
			plan, method         string
			amount               int64
			start, end, recorded time.Time
		)
		if err := rows.Scan(&id, &member, &plan, &amount, &method, &start, &end, &by, &recorded); err != nil {
			return nil, err
		}
		out = append(out, domain.SubscriptionPeriod{
			ID:          domain.PaymentID(id.String()),
			MemberID:    domain.MemberID(member.String()),
			Plan:        domain.Plan(plan),
			AmountCents: amount,
			Method:      domain.PaymentMethod(method),
			PeriodStart: start.UTC(),
			PeriodEnd:   end.UTC(),
			RecordedBy:  domain.MemberID(by.String()),
			CreatedAt:   recorded.UTC(),
		})
	}
	return out, rows.Err()
}
