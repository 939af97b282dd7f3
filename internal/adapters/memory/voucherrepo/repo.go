package voucherrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

type dailyKey struct {
	member domain.MemberID
	day    time.Time
}

// Repo is an in-memory implementation of voucherrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byCode  map[string]domain.Voucher
	byDaily map[dailyKey]string
}

func NewRepo() *Repo {
	return &Repo{
		byCode:  make(map[string]domain.Voucher),
		byDaily: make(map[dailyKey]string),
	}
}

func (r *Repo) Create(ctx context.Context, v domain.Voucher) error {
	_ = ctx
	v.Code = domain.NormalizeVoucherCode(v.Code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[v.Code]; ok {
		return voucherrepo.ErrAlreadyExists
	}
	if v.Source == domain.VoucherSourceDaily && v.MemberID != nil {
		k := dailyKey{member: *v.MemberID, day: v.IssuedOn.UTC()}
		if _, ok := r.byDaily[k]; ok {
			return voucherrepo.ErrAlreadyExists
		}
		r.byDaily[k] = v.Code
	}
	r.byCode[v.Code] = cloneVoucher(v)
	return nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (domain.Voucher, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byCode[domain.NormalizeVoucherCode(code)]
	if !ok {
		return domain.Voucher{}, voucherrepo.ErrNotFound
	}
	return cloneVoucher(v), nil
}

func (r *Repo) GetDailyForMember(ctx context.Context, memberID domain.MemberID, day time.Time) (domain.Voucher, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byDaily[dailyKey{member: memberID, day: day.UTC()}]
	if !ok {
		return domain.Voucher{}, voucherrepo.ErrNotFound
	}
	v, ok := r.byCode[code]
	if !ok {
		return domain.Voucher{}, voucherrepo.ErrNotFound
	}
	return cloneVoucher(v), nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Voucher, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Voucher, 0)
	for _, v := range r.byCode {
		if v.MemberID != nil && *v.MemberID == memberID {
			out = append(out, cloneVoucher(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) Redeem(ctx context.Context, code string, by domain.MemberID, at time.Time) (domain.Voucher, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeVoucherCode(code)
	v, ok := r.byCode[key]
	if !ok {
		return domain.Voucher{}, voucherrepo.ErrNotFound
	}
	if v.RedeemedAt != nil {
		return domain.Voucher{}, voucherrepo.ErrAlreadyRedeemed
	}
	if !at.Before(v.ExpiresAt) {
		return domain.Voucher{}, voucherrepo.ErrExpired
	}
	at = at.UTC()
	v.RedeemedAt = &at
	v.RedeemedBy = &by
	r.byCode[key] = v
	return cloneVoucher(v), nil
}

func (r *Repo) DeleteUnredeemedExpired(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for code, v := range r.byCode {
		if v.RedeemedAt != nil || now.Before(v.ExpiresAt) {
			continue
		}
		delete(r.byCode, code)
		if v.Source == domain.VoucherSourceDaily && v.MemberID != nil {
			delete(r.byDaily, dailyKey{member: *v.MemberID, day: v.IssuedOn.UTC()})
		}
		n++
	}
	return n, nil
}

func cloneVoucher(v domain.Voucher) domain.Voucher {
	out := v
	if v.MemberID != nil {
		id := *v.MemberID
		out.MemberID = &id
	}
	if v.RedeemedAt != nil {
		t := *v.RedeemedAt
		out.RedeemedAt = &t
	}
	if v.RedeemedBy != nil {
		id := *v.RedeemedBy
		out.RedeemedBy = &id
	}
	return out
}
