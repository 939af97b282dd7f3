package sessionrepo

import (
	"context"
	"errors"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

var (
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyOpen means the member already has an open session.
	ErrAlreadyOpen = errors.New("member already checked in")

	// ErrCapacityReached means every seat is taken.
	ErrCapacityReached = errors.New("capacity reached")
)

// Repository persists check-in sessions.
type Repository interface {
	// Open starts a session if the member has none open and fewer than capacity sessions
	// are open. The check and the insert are atomic.
	Open(ctx context.Context, s domain.Session, capacity int) error

	// Close closes the member's open session at the given instant.
	Close(ctx context.Context, memberID domain.MemberID, at time.Time) (domain.Session, error)

	// CloseByID closes a specific session. Closing an already closed session returns it unchanged.
	CloseByID(ctx context.Context, id domain.SessionID, at time.Time) (domain.Session, error)

	GetOpenForMember(ctx context.Context, memberID domain.MemberID) (domain.Session, error)

	// ListOpen returns open sessions ordered by CheckedInAt ascending.
	ListOpen(ctx context.Context) ([]domain.Session, error)
	CountOpen(ctx context.Context) (int, error)

	// ListByMember returns the member's sessions newest first, at most limit when limit > 0.
	ListByMember(ctx context.Context, memberID domain.MemberID, limit int) ([]domain.Session, error)

	// CloseAllOpen closes every open session with AutoClosed set and returns the count.
	CloseAllOpen(ctx context.Context, at time.Time) (int, error)
}
