package bookingrepo

import (
	"context"
	"errors"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

var (
	ErrNotFound = errors.New("booking not found")

	// ErrAlreadyBooked means the member holds an active booking for the date.
	ErrAlreadyBooked = errors.New("member already booked for date")

	// ErrFullyBooked means active bookings for the date reached capacity.
	ErrFullyBooked = errors.New("date fully booked")
)

type Repository interface {
	// Create inserts an active booking, enforcing one per member per date and the
	// per-date capacity atomically.
	Create(ctx context.Context, b domain.Booking, capacity int) error

	GetByID(ctx context.Context, id domain.BookingID) (domain.Booking, error)
	Cancel(ctx context.Context, id domain.BookingID, at time.Time) (domain.Booking, error)

	// ListByMember returns the member's bookings ordered by date ascending.
	ListByMember(ctx context.Context, memberID domain.MemberID) ([]domain.Booking, error)

	CountActiveOnDate(ctx context.Context, date time.Time) (int, error)
}
