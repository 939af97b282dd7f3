package postrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
)

// Repo is an in-memory implementation of postrepo.Repository.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PostID]domain.BoardPost
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.PostID]domain.BoardPost)}
}

func (r *Repo) Create(ctx context.Context, p domain.BoardPost) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p.DeletedAt = nil
	r.byID[p.ID] = p
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PostID) (domain.BoardPost, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok || p.DeletedAt != nil {
		return domain.BoardPost{}, postrepo.ErrNotFound
	}
	return p, nil
}

func (r *Repo) ListRecent(ctx context.Context, limit int) ([]domain.BoardPost, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BoardPost, 0, len(r.byID))
	for _, p := range r.byID {
		if p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) SoftDelete(ctx context.Context, id domain.PostID, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.DeletedAt != nil {
		return postrepo.ErrNotFound
	}
	at = at.UTC()
	p.DeletedAt = &at
	r.byID[id] = p
	return nil
}
