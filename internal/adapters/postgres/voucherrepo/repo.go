package voucherrepo

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
	"github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

// Repo is a Postgres implementation of voucherrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const voucherColumns = `id, code, source, member_id, issued_on, expires_at, discount_percent, redeemed_at, redeemed_by, created_at`

func (r *Repo) Create(ctx context.Context, v domain.Voucher) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid voucher id: %w", err)
	}
	memberID, err := optionalUUID(v.MemberID)
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO vouchers (`+voucherColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, NULL, $8)
	`,
		id,
		domain.NormalizeVoucherCode(v.Code),
		string(v.Source),
		memberID,
		v.IssuedOn.UTC(),
		v.ExpiresAt.UTC(),
		v.DiscountPercent,
		v.CreatedAt.UTC(),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return voucherrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (domain.Voucher, error) {
	if r.pool == nil {
		return domain.Voucher{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, domain.NormalizeVoucherCode(code))
	return scanVoucher(row)
}

func (r *Repo) GetDailyForMember(ctx context.Context, memberID domain.MemberID, day time.Time) (domain.Voucher, error) {
	if r.pool == nil {
		return domain.Voucher{}, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return domain.Voucher{}, voucherrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE member_id = $1 AND issued_on = $2 AND source = 'DAILY'
	`, mid, day.UTC())
	return scanVoucher(row)
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Voucher, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []domain.Voucher{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE member_id = $1
		ORDER BY created_at DESC, code ASC
	`, mid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Redeem relies on the conditional UPDATE: Postgres row locking lets exactly one
// concurrent statement see redeemed_at IS NULL. Expiry is checked in the same statement.
func (r *Repo) Redeem(ctx context.Context, code string, by domain.MemberID, at time.Time) (domain.Voucher, error) {
	if r.pool == nil {
		return domain.Voucher{}, errors.New("nil postgres pool")
	}
	byID, err := uuid.Parse(string(by))
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("invalid member id: %w", err)
	}
	norm := domain.NormalizeVoucherCode(code)

	row := r.pool.QueryRow(ctx, `
		UPDATE vouchers
		SET redeemed_at = $2, redeemed_by = $3
		WHERE code = $1 AND redeemed_at IS NULL AND expires_at > $2
		RETURNING `+voucherColumns,
		norm, at.UTC(), byID,
	)
	v, err := scanVoucher(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, voucherrepo.ErrNotFound) {
		return domain.Voucher{}, err
	}

	// Nothing updated: the code is unknown, someone redeemed it first, or it expired.
	var redeemed bool
	err = r.pool.QueryRow(ctx, `SELECT redeemed_at IS NOT NULL FROM vouchers WHERE code = $1`, norm).Scan(&redeemed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.Voucher{}, voucherrepo.ErrNotFound
	case err != nil:
		return domain.Voucher{}, err
	case redeemed:
		return domain.Voucher{}, voucherrepo.ErrAlreadyRedeemed
	}
	return domain.Voucher{}, voucherrepo.ErrExpired
}

func (r *Repo) DeleteUnredeemedExpired(ctx context.Context, now time.Time) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM vouchers WHERE redeemed_at IS NULL AND expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

// --- helpers ---

func optionalUUID(id *domain.MemberID) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	u, err := uuid.Parse(string(*id))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func memberIDPtr(u *uuid.UUID) *domain.MemberID {
	if u == nil {
		return nil
	}
	id := domain.MemberID(u.String())
	return &id
}

func scanVoucher(row interface {
	Scan(dest ...any) error
}) (domain.Voucher, error) {
	var (
		id         uuid.UUID
		code       string
		source     string
		memberID   *uuid.UUID
		issuedOn   time.Time
		expiresAt  time.Time
		discount   int
		redeemedAt *time.Time
		redeemedBy *uuid.UUID
		createdAt  time.Time
	)
	if err := row.Scan(&id, &code, &source, &memberID, &issuedOn, &expiresAt, &discount, &redeemedAt, &redeemedBy, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Voucher{}, voucherrepo.ErrNotFound
		}
		return domain.Voucher{}, err
	}
	if redeemedAt != nil {
		v := redeemedAt.UTC()
		redeemedAt = &v
	}
	return domain.Voucher{
		ID:              domain.VoucherID(id.String()),
		Code:            code,
		Source:          domain.VoucherSource(source),
		MemberID:        memberIDPtr(memberID),
		IssuedOn:        issuedOn.UTC(),
		ExpiresAt:       expiresAt.UTC(),
		DiscountPercent: discount,
		RedeemedAt:      redeemedAt,
		RedeemedBy:      memberIDPtr(redeemedBy),
		CreatedAt:       createdAt.UTC(),
	}, nil
}
