package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const memberColumns = `
	external_id,
	display_name,
	email,
	phone,
	password_hash,
	bio,
	role,
	status,
	plan,
	paid_through,
	created_at,
	updated_at
`

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (`+memberColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		id,
		m.DisplayName,
		m.Email,
		m.Phone,
		passwordBytes(m.PasswordHash),
		m.Bio,
		string(m.Role),
		string(m.Status),
		string(m.Plan),
		m.PaidThrough,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "members_email_unique":
				return memberrepo.ErrEmailAlreadyBound
			case "members_external_id_unique":
				return memberrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE members
		SET display_name = $2,
		    email = $3,
		    phone = $4,
		    password_hash = $5,
		    bio = $6,
		    role = $7,
		    status = $8,
		    plan = $9,
		    paid_through = $10,
		    updated_at = $11
		WHERE external_id = $1
	`,
		id,
		m.DisplayName,
		m.Email,
		m.Phone,
		passwordBytes(m.PasswordHash),
		m.Bio,
		string(m.Role),
		string(m.Status),
		string(m.Plan),
		m.PaidThrough,
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "members_email_unique") {
			return memberrepo.ErrEmailAlreadyBound
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) SetSubscription(ctx context.Context, id domain.MemberID, plan domain.Plan, paidThrough, at time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return SetSubscription(ctx, r.pool, id, plan, paidThrough, at)
}

// SetSubscription runs the plan and paid-through update on q, which may be a transaction.
func SetSubscription(ctx context.Context, q Execer, id domain.MemberID, plan domain.Plan, paidThrough, at time.Time) error {
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.ErrNotFound
	}
	ct, err := q.Exec(ctx, `
		UPDATE members
		SET plan = $2, paid_through = $3, updated_at = $4
		WHERE external_id = $1
	`, uid, string(plan), paidThrough.UTC(), at.UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE external_id = $1`, uid)
	return scanMember(row)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE lower(email) = $1`, domain.NormalizeEmail(email))
	return scanMember(row)
}

func (r *Repo) List(ctx context.Context, status domain.MemberStatus) ([]memberrepo.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY lower(display_name) ASC, external_id ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]memberrepo.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

func passwordBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func scanMember(row interface {
	Scan(dest ...any) error
}) (memberrepo.Member, error) {
	var (
		externalID   uuid.UUID
		displayName  string
		email        string
		phone        string
		passwordHash []byte
		bio          *string
		role         string
		status       string
		plan         string
		paidThrough  *time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&externalID,
		&displayName,
		&email,
		&phone,
		&passwordHash,
		&bio,
		&role,
		&status,
		&plan,
		&paidThrough,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	if paidThrough != nil {
		v := paidThrough.UTC()
		paidThrough = &v
	}
	return memberrepo.Member{
		ID:           domain.MemberID(externalID.String()),
		DisplayName:  displayName,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Bio:          bio,
		Role:         domain.Role(role),
		Status:       domain.MemberStatus(status),
		Plan:         domain.Plan(plan),
		PaidThrough:  paidThrough,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}
