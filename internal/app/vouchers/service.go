package vouchers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

const (
	codePrefix = "813-"
	codeLength = 6
	// No 0/O, 1/I/L: codes are read aloud at the till.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 5

	DefaultDiscountPercent = 10
)

// MemberGate resolves a member that may use the portal.
type MemberGate interface {
	RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error)
}

type Service struct {
	repo     voucherrepo.Repository
	members  MemberGate
	cal      clock.Calendar
	activity activity.Recorder

	discountPercent int
	newCode         func() (string, error)
}

func NewService(repo voucherrepo.Repository, members MemberGate, cal clock.Calendar, rec activity.Recorder, discountPercent int) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	if discountPercent <= 0 || discountPercent > 100 {
		discountPercent = DefaultDiscountPercent
	}
	return &Service{
		repo:            repo,
		members:         members,
		cal:             cal,
		activity:        rec,
		discountPercent: discountPercent,
		newCode:         NewCode,
	}
}

// NewCode returns a random code such as "813-K7QH2M".
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("voucher code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

// IssueDaily returns the member's voucher for the current café day, creating it on first call.
func (s *Service) IssueDaily(ctx context.Context, memberID domain.MemberID) (domain.Voucher, error) {
	if _, err := s.members.RequireApproved(ctx, memberID); err != nil {
		return domain.Voucher{}, err
	}

	today := s.cal.Today()
	if v, err := s.repo.GetDailyForMember(ctx, memberID, today); err == nil {
		return v, nil
	} else if !errors.Is(err, voucherrepo.ErrNotFound) {
		return domain.Voucher{}, err
	}

	owner := memberID
	v := domain.Voucher{
		Source:          domain.VoucherSourceDaily,
		MemberID:        &owner,
		IssuedOn:        today,
		ExpiresAt:       s.cal.NextMidnight(),
		DiscountPercent: s.discountPercent,
		CreatedAt:       s.cal.Now(),
	}
	created, err := s.create(ctx, v)
	if errors.Is(err, voucherrepo.ErrAlreadyExists) {
		// Lost a race with a concurrent request for the same member.
		return s.repo.GetDailyForMember(ctx, memberID, today)
	}
	if err != nil {
		return domain.Voucher{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "voucher.issued",
		MemberID: &owner,
		Message:  "Daily voucher " + created.Code + " issued",
		Data:     map[string]any{"code": created.Code, "source": string(created.Source)},
	})
	return created, nil
}

// IssuePOS creates a till voucher. A zero validFor means until the end of the café day.
func (s *Service) IssuePOS(ctx context.Context, admin domain.MemberID, discountPercent int, validFor time.Duration) (domain.Voucher, error) {
	if discountPercent < 1 || discountPercent > 100 {
		return domain.Voucher{}, apperr.Validation("invalid discountPercent", map[string]any{"discountPercent": "must be between 1 and 100"})
	}
	if validFor < 0 {
		return domain.Voucher{}, apperr.Validation("invalid validFor", map[string]any{"validFor": "must not be negative"})
	}

	now := s.cal.Now()
	expires := s.cal.NextMidnight()
	if validFor > 0 {
		expires = now.Add(validFor)
	}
	created, err := s.create(ctx, domain.Voucher{
		Source:          domain.VoucherSourcePOS,
		IssuedOn:        s.cal.Today(),
		ExpiresAt:       expires,
		DiscountPercent: discountPercent,
		CreatedAt:       now,
	})
	if err != nil {
		return domain.Voucher{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:    "voucher.issued",
		Message: "POS voucher " + created.Code + " issued",
		Data:    map[string]any{"code": created.Code, "source": string(created.Source), "by": string(admin)},
	})
	return created, nil
}

// create assigns an ID and a fresh code, retrying on code collisions. A duplicate daily
// voucher is returned as voucherrepo.ErrAlreadyExists.
func (s *Service) create(ctx context.Context, v domain.Voucher) (domain.Voucher, error) {
	v.ID = domain.VoucherID(uuid.NewString())
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return domain.Voucher{}, err
		}
		v.Code = code

		err = s.repo.Create(ctx, v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, voucherrepo.ErrAlreadyExists) {
			return domain.Voucher{}, err
		}
		if v.Source == domain.VoucherSourceDaily && v.MemberID != nil {
			if _, getErr := s.repo.GetDailyForMember(ctx, *v.MemberID, v.IssuedOn); getErr == nil {
				return domain.Voucher{}, err
			}
		}
	}
	return domain.Voucher{}, fmt.Errorf("voucher code: no unique code after %d attempts", maxCodeAttempts)
}

// Search classifies code as none, found, expired or redeemed.
func (s *Service) Search(ctx context.Context, code string) (domain.VoucherStatus, *domain.Voucher, error) {
	code = domain.NormalizeVoucherCode(code)
	if code == "" {
		return domain.VoucherStatusNone, nil, nil
	}
	v, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, voucherrepo.ErrNotFound) {
			return domain.VoucherStatusNone, nil, nil
		}
		return "", nil, err
	}
	status, found := domain.SearchVoucher([]domain.Voucher{v}, code, s.cal.Now())
	return status, found, nil
}

// Redeem marks the voucher used. Concurrent calls for one code succeed at most once.
func (s *Service) Redeem(ctx context.Context, code string, by domain.MemberID) (domain.Voucher, error) {
	status, v, err := s.Search(ctx, code)
	if err != nil {
		return domain.Voucher{}, err
	}
	switch status {
	case domain.VoucherStatusNone:
		return domain.Voucher{}, notFound()
	case domain.VoucherStatusRedeemed:
		return domain.Voucher{}, alreadyRedeemed(v)
	case domain.VoucherStatusExpired:
		return domain.Voucher{}, expired(v)
	}

	redeemed, err := s.repo.Redeem(ctx, v.Code, by, s.cal.Now())
	if err != nil {
		switch {
		case errors.Is(err, voucherrepo.ErrNotFound):
			return domain.Voucher{}, notFound()
		case errors.Is(err, voucherrepo.ErrAlreadyRedeemed):
			return domain.Voucher{}, alreadyRedeemed(v)
		case errors.Is(err, voucherrepo.ErrExpired):
			return domain.Voucher{}, expired(v)
		}
		return domain.Voucher{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "voucher.redeemed",
		MemberID: redeemed.MemberID,
		Message:  fmt.Sprintf("Voucher %s redeemed (%d%% off)", redeemed.Code, redeemed.DiscountPercent),
		Data:     map[string]any{"code": redeemed.Code, "by": string(by)},
	})
	return redeemed, nil
}

func (s *Service) ListMine(ctx context.Context, memberID domain.MemberID) ([]domain.Voucher, error) {
	return s.repo.ListByMember(ctx, memberID)
}

func notFound() *apperr.Error {
	return apperr.NotFound("VOUCHER_NOT_FOUND", "voucher not found")
}

func expired(v *domain.Voucher) *apperr.Error {
	return apperr.Conflict("VOUCHER_EXPIRED", "voucher has expired", map[string]any{
		"code":      v.Code,
		"expiresAt": v.ExpiresAt,
	})
}

func alreadyRedeemed(v *domain.Voucher) *apperr.Error {
	details := map[string]any{}
	if v != nil {
		details["code"] = v.Code
		if v.RedeemedAt != nil {
			details["redeemedAt"] = *v.RedeemedAt
		}
	}
	return apperr.Conflict("VOUCHER_ALREADY_REDEEMED", "voucher has already been redeemed", details)
}
