package sessionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

// Repo is an in-memory implementation of sessionrepo.Repository.
// A single mutex serializes Open so the capacity check and insert cannot interleave.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.SessionID]domain.Session
	openByMb map[domain.MemberID]domain.SessionID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.SessionID]domain.Session),
		openByMb: make(map[domain.MemberID]domain.SessionID),
	}
}

func (r *Repo) Open(ctx context.Context, s domain.Session, capacity int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.openByMb[s.MemberID]; ok {
		return sessionrepo.ErrAlreadyOpen
	}
	if len(r.openByMb) >= capacity {
		return sessionrepo.ErrCapacityReached
	}
	s.CheckedOutAt = nil
	r.byID[s.ID] = cloneSession(s)
	r.openByMb[s.MemberID] = s.ID
	return nil
}

func (r *Repo) Close(ctx context.Context, memberID domain.MemberID, at time.Time) (domain.Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.openByMb[memberID]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	return r.closeLocked(id, at, false), nil
}

func (r *Repo) CloseByID(ctx context.Context, id domain.SessionID, at time.Time) (domain.Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	if !s.IsOpen() {
		return cloneSession(s), nil
	}
	return r.closeLocked(id, at, false), nil
}

func (r *Repo) closeLocked(id domain.SessionID, at time.Time, auto bool) domain.Session {
	s := r.byID[id]
	at = at.UTC()
	s.CheckedOutAt = &at
	s.AutoClosed = auto
	r.byID[id] = s
	delete(r.openByMb, s.MemberID)
	return cloneSession(s)
}

func (r *Repo) GetOpenForMember(ctx context.Context, memberID domain.MemberID) (domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.openByMb[memberID]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	return cloneSession(r.byID[id]), nil
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Session, 0, len(r.openByMb))
	for _, id := range r.openByMb {
		out = append(out, cloneSession(r.byID[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckedInAt.Equal(out[j].CheckedInAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CheckedInAt.Before(out[j].CheckedInAt)
	})
	return out, nil
}

func (r *Repo) CountOpen(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.openByMb), nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID, limit int) ([]domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Session, 0)
	for _, s := range r.byID {
		if s.MemberID == memberID {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckedInAt.Equal(out[j].CheckedInAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CheckedInAt.After(out[j].CheckedInAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) CloseAllOpen(ctx context.Context, at time.Time) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]domain.SessionID, 0, len(r.openByMb))
	for _, id := range r.openByMb {
		ids = append(ids, id)
	}
	for _, id := range ids {
		r.closeLocked(id, at, true)
	}
	return len(ids), nil
}

func cloneSession(s domain.Session) domain.Session {
	out := s
	if s.CheckedOutAt != nil {
		t := *s.CheckedOutAt
		out.CheckedOutAt = &t
	}
	return out
}
