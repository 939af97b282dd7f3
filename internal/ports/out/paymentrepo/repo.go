package paymentrepo

import (
	"context"
	"errors"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// ErrMemberNotFound is returned by Create when the paying member does not exist.
var ErrMemberNotFound = errors.New("payment member not found")

type Repository interface {
	// Create stores p and moves the member's plan and paid-through date to p.Plan and
	// p.PeriodEnd as one unit: either both happen or neither does.
	Create(ctx context.Context, p domain.SubscriptionPeriod) error

	// ListByMember returns payments ordered by PeriodStart descending.
	ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.SubscriptionPeriod, error)
}
