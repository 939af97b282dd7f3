package paymentrepo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	"github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
)

// Subscriptions applies a stored payment to the member record.
type Subscriptions interface {
	SetSubscription(ctx context.Context, id domain.MemberID, plan domain.Plan, paidThrough, at time.Time) error
}

// Repo is an in-memory implementation of paymentrepo.Repository.
type Repo struct {
	members Subscriptions

	mu       sync.RWMutex
	byMember map[domain.MemberID][]domain.SubscriptionPeriod
}

func NewRepo(members Subscriptions) *Repo {
	return &Repo{members: members, byMember: make(map[domain.MemberID][]domain.SubscriptionPeriod)}
}

// Create updates the member first; the payment is only appended once that succeeded.
func (r *Repo) Create(ctx context.Context, p domain.SubscriptionPeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.members.SetSubscription(ctx, p.MemberID, p.Plan, p.PeriodEnd, p.CreatedAt); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return paymentrepo.ErrMemberNotFound
		}
		return err
	}
	r.byMember[p.MemberID] = append(r.byMember[p.MemberID], p)
	return nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.SubscriptionPeriod, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]domain.SubscriptionPeriod(nil), r.byMember[memberID]...)
	if out == nil {
		out = []domain.SubscriptionPeriod{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodStart.After(out[j].PeriodStart)
	})
	return out, nil
}
