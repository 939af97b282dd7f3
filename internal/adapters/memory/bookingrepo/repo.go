package bookingrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
)

// Repo is an in-memory implementation of bookingrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.BookingID]domain.Booking
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.BookingID]domain.Booking)}
}

func (r *Repo) Create(ctx context.Context, b domain.Booking, capacity int) error {
	_ = ctx
	b.Date = b.Date.UTC()
	b.CanceledAt = nil

	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, existing := range r.byID {
		if !existing.IsActive() || !existing.Date.Equal(b.Date) {
			continue
		}
		if existing.MemberID == b.MemberID {
			return bookingrepo.ErrAlreadyBooked
		}
		active++
	}
	if active >= capacity {
		return bookingrepo.ErrFullyBooked
	}
	r.byID[b.ID] = b
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.BookingID) (domain.Booking, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return domain.Booking{}, bookingrepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

// Cancel is idempotent: canceling a canceled booking returns it unchanged.
func (r *Repo) Cancel(ctx context.Context, id domain.BookingID, at time.Time) (domain.Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return domain.Booking{}, bookingrepo.ErrNotFound
	}
	if b.CanceledAt == nil {
		at = at.UTC()
		b.CanceledAt = &at
		r.byID[id] = b
	}
	return cloneBooking(b), nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Booking, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.byID {
		if b.MemberID == memberID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *Repo) CountActiveOnDate(ctx context.Context, date time.Time) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.byID {
		if b.IsActive() && b.Date.Equal(date) {
			n++
		}
	}
	return n, nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	out := b
	if b.CanceledAt != nil {
		t := *b.CanceledAt
		out.CanceledAt = &t
	}
	return out
}
