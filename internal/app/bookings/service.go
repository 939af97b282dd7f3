package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
)

const DefaultWindowDays = 14

type MemberGate interface {
	RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error)
}

type Options struct {
	// Capacity is the number of seats that can be reserved per café day.
	Capacity   int
	WindowDays int
}

// Availability is the reservation state of one café day.
type Availability struct {
	Date time.Time
	domain.Occupancy
}

type Service struct {
	repo     bookingrepo.Repository
	members  MemberGate
	cal      clock.Calendar
	activity activity.Recorder
	opts     Options
}

func NewService(repo bookingrepo.Repository, members MemberGate, cal clock.Calendar, rec activity.Recorder, opts Options) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	if opts.Capacity <= 0 {
		opts.Capacity = domain.DefaultSessionCapacity
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	return &Service{repo: repo, members: members, cal: cal, activity: rec, opts: opts}
}

// Book reserves a seat on date, which must fall within the booking window starting today.
func (s *Service) Book(ctx context.Context, memberID domain.MemberID, date time.Time) (domain.Booking, error) {
	if _, err := s.members.RequireApproved(ctx, memberID); err != nil {
		return domain.Booking{}, err
	}

	date = dayOnly(date)
	today := s.cal.Today()
	last := domain.AddDays(today, s.opts.WindowDays)
	if date.Before(today) || date.After(last) {
		return domain.Booking{}, apperr.Validation("invalid date", map[string]any{
			"date":     "must be between " + domain.FormatDay(today) + " and " + domain.FormatDay(last),
			"earliest": domain.FormatDay(today),
			"latest":   domain.FormatDay(last),
		})
	}

	b := domain.Booking{
		ID:        domain.BookingID(uuid.NewString()),
		MemberID:  memberID,
		Date:      date,
		CreatedAt: s.cal.Now(),
	}
	if err := s.repo.Create(ctx, b, s.opts.Capacity); err != nil {
		switch {
		case errors.Is(err, bookingrepo.ErrAlreadyBooked):
			return domain.Booking{}, apperr.Conflict("ALREADY_BOOKED", "you already have a booking for this date", map[string]any{
				"date": domain.FormatDay(date),
			})
		case errors.Is(err, bookingrepo.ErrFullyBooked):
			return domain.Booking{}, apperr.Conflict("DATE_FULLY_BOOKED", "no seats left for this date", map[string]any{
				"date":     domain.FormatDay(date),
				"capacity": s.opts.Capacity,
			})
		}
		return domain.Booking{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "booking.created",
		MemberID: &b.MemberID,
		Message:  "seat booked for " + domain.FormatDay(date),
	})
	return b, nil
}

// Cancel cancels one of the member's own bookings. Other members' bookings are reported as
// not found.
func (s *Service) Cancel(ctx context.Context, memberID domain.MemberID, id domain.BookingID) (domain.Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return domain.Booking{}, notFound()
		}
		return domain.Booking{}, err
	}
	if b.MemberID != memberID {
		return domain.Booking{}, notFound()
	}
	if b.Date.Before(s.cal.Today()) {
		return domain.Booking{}, apperr.Conflict("BOOKING_IN_PAST", "past bookings cannot be canceled", map[string]any{
			"date": domain.FormatDay(b.Date),
		})
	}
	if !b.IsActive() {
		return b, nil
	}

	canceled, err := s.repo.Cancel(ctx, id, s.cal.Now())
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return domain.Booking{}, notFound()
		}
		return domain.Booking{}, err
	}
	s.activity.Record(ctx, activity.Entry{
		Kind:     "booking.canceled",
		MemberID: &canceled.MemberID,
		Message:  "booking for " + domain.FormatDay(canceled.Date) + " canceled",
	})
	return canceled, nil
}

func (s *Service) ListMine(ctx context.Context, memberID domain.MemberID) ([]domain.Booking, error) {
	return s.repo.ListByMember(ctx, memberID)
}

func (s *Service) Availability(ctx context.Context, date time.Time) (Availability, error) {
	date = dayOnly(date)
	n, err := s.repo.CountActiveOnDate(ctx, date)
	if err != nil {
		return Availability{}, err
	}
	return Availability{Date: date, Occupancy: domain.NewOccupancy(n, s.opts.Capacity)}, nil
}

func dayOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func notFound() *apperr.Error {
	return apperr.NotFound("BOOKING_NOT_FOUND", "booking not found")
}
