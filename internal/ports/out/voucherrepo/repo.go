package voucherrepo

import (
	"context"
	"errors"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

var (
	ErrNotFound = errors.New("voucher not found")

	// ErrAlreadyExists is returned when the code is taken, or when the member already
	// holds a DAILY voucher for the same café day.
	ErrAlreadyExists = errors.New("voucher already exists")

	// ErrAlreadyRedeemed is returned by Redeem when another caller redeemed first.
	ErrAlreadyRedeemed = errors.New("voucher already redeemed")

	// ErrExpired is returned by Redeem when the voucher expired at or before the redemption time.
	ErrExpired = errors.New("voucher expired")
)

// Repository persists vouchers. Codes are stored normalized (upper-case).
type Repository interface {
	Create(ctx context.Context, v domain.Voucher) error

	GetByCode(ctx context.Context, code string) (domain.Voucher, error)

	// GetDailyForMember returns the member's DAILY voucher issued on day.
	GetDailyForMember(ctx context.Context, memberID domain.MemberID, day time.Time) (domain.Voucher, error)

	// ListByMember returns the member's vouchers, newest first.
	ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Voucher, error)

	// Redeem marks an unredeemed voucher redeemed at the given time. It is a compare-and-set:
	// exactly one concurrent caller succeeds, the others get ErrAlreadyRedeemed. A voucher
	// whose ExpiresAt is not after at is left alone and ErrExpired is returned.
	Redeem(ctx context.Context, code string, by domain.MemberID, at time.Time) (domain.Voucher, error)

	// DeleteUnredeemedExpired removes unredeemed vouchers with ExpiresAt <= now and returns
	// how many were removed. Redeemed vouchers are kept as history.
	DeleteUnredeemedExpired(ctx context.Context, now time.Time) (int, error)
}
