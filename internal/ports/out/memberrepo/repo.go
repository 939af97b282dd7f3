package memberrepo

import (
	"context"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Member is the persistence shape used by the member repository.
// It's used as an internal record, not an HTTP DTO.
type Member struct {
	ID domain.MemberID
	// DisplayName is the member's preferred display name.
	DisplayName string
	// Email is unique across members (case-insensitive).
	Email string
	Phone string
	// PasswordHash is a bcrypt hash; never returned over HTTP.
	PasswordHash []byte
	// Bio is an optional short introduction shown on the community board; nil means unset.
	Bio *string

	Role   domain.Role
	Status domain.MemberStatus
	Plan   domain.Plan

	PaidThrough *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted members.
//
// Result ordering expectations:
// - List methods return results ordered by DisplayName ascending (case-insensitive), then ID.
type Repository interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error
	// SetSubscription changes only the plan and paid-through date, leaving concurrent edits
	// to other fields intact.
	SetSubscription(ctx context.Context, id domain.MemberID, plan domain.Plan, paidThrough, at time.Time) error

	GetByID(ctx context.Context, id domain.MemberID) (Member, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (Member, error)

	// List returns all members, or only those in status when status is non-empty.
	List(ctx context.Context, status domain.MemberStatus) ([]Member, error)
}
