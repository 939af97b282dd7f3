package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type MemberGate interface {
	RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error)
}

// Options tune seat rules.
type Options struct {
	Capacity int
	// RequirePaidSubscription rejects check-in for members whose PaidThrough is before today.
	RequirePaidSubscription bool
}

type Service struct {
	repo     sessionrepo.Repository
	members  MemberGate
	cal      clock.Calendar
	activity activity.Recorder
	opts     Options
}

func NewService(repo sessionrepo.Repository, members MemberGate, cal clock.Calendar, rec activity.Recorder, opts Options) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	if opts.Capacity <= 0 {
		opts.Capacity = domain.DefaultSessionCapacity
	}
	return &Service{repo: repo, members: members, cal: cal, activity: rec, opts: opts}
}

func (s *Service) Capacity() int { return s.opts.Capacity }

// CheckIn opens a session for the member if a seat is free.
func (s *Service) CheckIn(ctx context.Context, memberID domain.MemberID) (domain.Session, error) {
	m, err := s.members.RequireApproved(ctx, memberID)
	if err != nil {
		return domain.Session{}, err
	}
	if s.opts.RequirePaidSubscription && !m.IsAdmin() && !m.HasCurrentSubscription(s.cal.Today()) {
		details := map[string]any{}
		if m.PaidThrough != nil {
			details["paidThrough"] = domain.FormatDay(*m.PaidThrough)
		}
		return domain.Session{}, &apperr.Error{
			Status:  http.StatusPaymentRequired,
			Code:    "SUBSCRIPTION_REQUIRED",
			Message: "a current subscription is required to check in",
			Details: details,
		}
	}

	sess := domain.Session{
		ID:          domain.SessionID(uuid.NewString()),
		MemberID:    memberID,
		CheckedInAt: s.cal.Now(),
	}
	if err := s.repo.Open(ctx, sess, s.opts.Capacity); err != nil {
		switch {
		case errors.Is(err, sessionrepo.ErrAlreadyOpen):
			return domain.Session{}, apperr.Conflict("ALREADY_CHECKED_IN", "you are already checked in", nil)
		case errors.Is(err, sessionrepo.ErrCapacityReached):
			occupied, cerr := s.repo.CountOpen(ctx)
			if cerr != nil {
				occupied = s.opts.Capacity
			}
			return domain.Session{}, apperr.Conflict("CAPACITY_REACHED", "all seats are taken", map[string]any{
				"capacity": s.opts.Capacity,
				"occupied": occupied,
			})
		}
		return domain.Session{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "session.checked_in",
		MemberID: &sess.MemberID,
		Message:  m.DisplayName + " checked in",
	})
	return sess, nil
}

func (s *Service) CheckOut(ctx context.Context, memberID domain.MemberID) (domain.Session, error) {
	sess, err := s.repo.Close(ctx, memberID, s.cal.Now())
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, apperr.Conflict("NOT_CHECKED_IN", "you are not checked in", nil)
		}
		return domain.Session{}, err
	}
	s.activity.Record(ctx, activity.Entry{
		Kind:     "session.checked_out",
		MemberID: &sess.MemberID,
		Message:  "checked out after " + sess.CheckedOutAt.Sub(sess.CheckedInAt).Round(time.Minute).String(),
	})
	return sess, nil
}

// ForceCheckOut closes a session on a member's behalf. Closing an already closed session
// returns it unchanged.
func (s *Service) ForceCheckOut(ctx context.Context, admin domain.MemberID, id domain.SessionID) (domain.Session, error) {
	sess, err := s.repo.CloseByID(ctx, id, s.cal.Now())
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, apperr.NotFound("SESSION_NOT_FOUND", "session not found")
		}
		return domain.Session{}, err
	}
	s.activity.Record(ctx, activity.Entry{
		Kind:     "session.force_checked_out",
		MemberID: &sess.MemberID,
		Message:  "checked out by staff",
		Data:     map[string]any{"sessionId": string(sess.ID), "by": string(admin)},
	})
	return sess, nil
}

func (s *Service) Occupancy(ctx context.Context) (domain.Occupancy, error) {
	n, err := s.repo.CountOpen(ctx)
	if err != nil {
		return domain.Occupancy{}, err
	}
	return domain.NewOccupancy(n, s.opts.Capacity), nil
}

func (s *Service) ListOpen(ctx context.Context) ([]domain.Session, error) {
	return s.repo.ListOpen(ctx)
}

// History returns the member's sessions, newest first.
func (s *Service) History(ctx context.Context, memberID domain.MemberID, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListByMember(ctx, memberID, limit)
}
