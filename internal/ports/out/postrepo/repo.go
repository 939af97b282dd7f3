package postrepo

import (
	"context"
	"errors"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

var ErrNotFound = errors.New("post not found")

type Repository interface {
	Create(ctx context.Context, p domain.BoardPost) error

	// GetByID returns live posts only; deleted posts are ErrNotFound.
	GetByID(ctx context.Context, id domain.PostID) (domain.BoardPost, error)

	// ListRecent returns live posts newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.BoardPost, error)

	SoftDelete(ctx context.Context, id domain.PostID, at time.Time) error
}
