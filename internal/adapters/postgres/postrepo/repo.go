package postrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
)

// Repo is a Postgres implementation of postrepo.Repository. Reads join the author's
// current display name.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectPost = `
	SELECT p.id, p.author_id, m.display_name, p.title, p.body, p.created_at, p.deleted_at
	FROM board_posts p
	JOIN members m ON m.external_id = p.author_id
`

func (r *Repo) Create(ctx context.Context, p domain.BoardPost) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid post id: %w", err)
	}
	author, err := uuid.Parse(string(p.AuthorID))
	if err != nil {
		return fmt.Errorf("invalid author id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO board_posts (id, author_id, title, body, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`, id, author, p.Title, p.Body, p.CreatedAt.UTC())
	return err
}

func (r *Repo) GetByID(ctx context.Context, id domain.PostID) (domain.BoardPost, error) {
	if r.pool == nil {
		return domain.BoardPost{}, errors.New("nil postgres pool")
	}
	pid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.BoardPost{}, postrepo.ErrNotFound
	}
	return scanPost(r.pool.QueryRow(ctx, selectPost+` WHERE p.id = $1 AND p.deleted_at IS NULL`, pid))
}

func (r *Repo) ListRecent(ctx context.Context, limit int) ([]domain.BoardPost, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, selectPost+`
		WHERE p.deleted_at IS NULL
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1
	`, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.BoardPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) SoftDelete(ctx context.Context, id domain.PostID, at time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pid, err := uuid.Parse(string(id))
	if err != nil {
		return postrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE board_posts SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, pid, at.UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return postrepo.ErrNotFound
	}
	return nil
}

func scanPost(row interface {
	Scan(dest ...any) error
}) (domain.BoardPost, error) {
	var (
		id, author uuid.UUID
		name       string
		title      string
		body       string
		createdAt  time.Time
		deletedAt  *time.Time
	)
	if err := row.Scan(&id, &author, &name, &title, &body, &createdAt, &deletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BoardPost{}, postrepo.ErrNotFound
		}
		return domain.BoardPost{}, err
	}
	return domain.BoardPost{
		ID:         domain.PostID(id.String()),
		AuthorID:   domain.MemberID(author.String()),
		AuthorName: name,
		Title:      title,
		Body:       body,
		CreatedAt:  createdAt.UTC(),
		DeletedAt:  deletedAt,
	}, nil
}
