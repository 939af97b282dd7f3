package memberrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.MemberID]memberrepo.Member
	idByEmail map[string]domain.MemberID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.MemberID]memberrepo.Member),
		idByEmail: make(map[string]domain.MemberID),
	}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	key := domain.NormalizeEmail(m.Email)
	if _, ok := r.idByEmail[key]; ok {
		return memberrepo.ErrEmailAlreadyBound
	}

	r.byID[m.ID] = cloneMember(m)
	r.idByEmail[key] = m.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	oldKey := domain.NormalizeEmail(existing.Email)
	newKey := domain.NormalizeEmail(m.Email)
	if oldKey != newKey {
		if owner, ok := r.idByEmail[newKey]; ok && owner != m.ID {
			return memberrepo.ErrEmailAlreadyBound
		}
		delete(r.idByEmail, oldKey)
		r.idByEmail[newKey] = m.ID
	}

	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *Repo) SetSubscription(ctx context.Context, id domain.MemberID, plan domain.Plan, paidThrough, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return memberrepo.ErrNotFound
	}
	paidThrough = paidThrough.UTC()
	m.Plan = plan
	m.PaidThrough = &paidThrough
	m.UpdatedAt = at.UTC()
	r.byID[id] = m
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByEmail[domain.NormalizeEmail(email)]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) List(ctx context.Context, status domain.MemberStatus) ([]memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]memberrepo.Member, 0, len(r.byID))
	for _, m := range r.byID {
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, cloneMember(m))
	}
	sortMembersByDisplayName(out)
	return out, nil
}

func cloneMember(m memberrepo.Member) memberrepo.Member {
	out := m
	if m.Bio != nil {
		v := *m.Bio
		out.Bio = &v
	}
	if m.PaidThrough != nil {
		v := *m.PaidThrough
		out.PaidThrough = &v
	}
	if m.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), m.PasswordHash...)
	}
	return out
}

func sortMembersByDisplayName(ms []memberrepo.Member) {
	sort.Slice(ms, func(i, j int) bool {
		di := strings.ToLower(ms[i].DisplayName)
		dj := strings.ToLower(ms[j].DisplayName)
		if di == dj {
			return string(ms[i].ID) < string(ms[j].ID)
		}
		return di < dj
	})
}
