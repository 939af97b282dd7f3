package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	"github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
)

type RecordInput struct {
	AmountCents int64
	Method      domain.PaymentMethod
	// Plan defaults to the member's current plan. A different plan switches the member.
	Plan domain.Plan
}

type Service struct {
	repo     paymentrepo.Repository
	members  memberrepo.Repository
	cal      clock.Calendar
	activity activity.Recorder

	// mu serializes period computation so two payments never cover the same days.
	mu sync.Mutex
}

func NewService(repo paymentrepo.Repository, memberRepo memberrepo.Repository, cal clock.Calendar, rec activity.Recorder) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	return &Service{repo: repo, members: memberRepo, cal: cal, activity: rec}
}

// Record stores a payment and extends the member's PaidThrough by one plan period. Only the
// plan and paid-through date are written back to the member.
func (s *Service) Record(ctx context.Context, admin, memberID domain.MemberID, in RecordInput) (domain.SubscriptionPeriod, error) {
	details := map[string]any{}
	if in.AmountCents <= 0 {
		details["amountCents"] = "must be greater than 0"
	}
	if !in.Method.Valid() {
		details["method"] = "must be one of CASH, CARD, TRANSFER"
	}
	if in.Plan != "" && in.Plan.Months() == 0 {
		details["plan"] = "must be one of MONTHLY, QUARTERLY, ANNUAL"
	}
	if len(details) > 0 {
		return domain.SubscriptionPeriod{}, apperr.Validation("invalid payment", details)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.SubscriptionPeriod{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return domain.SubscriptionPeriod{}, err
	}
	plan := in.Plan
	if plan == "" {
		plan = m.Plan
	}

	start, end := domain.NextPeriod(s.cal.Today(), m.PaidThrough, plan)
	p := domain.SubscriptionPeriod{
		ID:          domain.PaymentID(uuid.NewString()),
		MemberID:    memberID,
		Plan:        plan,
		AmountCents: in.AmountCents,
		Method:      in.Method,
		PeriodStart: start,
		PeriodEnd:   end,
		RecordedBy:  admin,
		CreatedAt:   s.cal.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, paymentrepo.ErrMemberNotFound) {
			return domain.SubscriptionPeriod{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return domain.SubscriptionPeriod{}, fmt.Errorf("record payment: %w", err)
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "payment.recorded",
		MemberID: &memberID,
		Message:  fmt.Sprintf("%s paid %d.%02d (%s) through %s", m.DisplayName, p.AmountCents/100, p.AmountCents%100, p.Method, domain.FormatDay(end)),
		Data: map[string]any{
			"amountCents": p.AmountCents,
			"plan":        string(plan),
			"periodStart": domain.FormatDay(start),
			"periodEnd":   domain.FormatDay(end),
			"by":          string(admin),
		},
	})
	return p, nil
}

// ListForMember returns recorded periods, latest first.
func (s *Service) ListForMember(ctx context.Context, memberID domain.MemberID) ([]domain.SubscriptionPeriod, error) {
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return nil, err
	}
	return s.repo.ListByMember(ctx, memberID)
}

// ListOverdue returns approved non-admin members whose subscription does not cover today.
func (s *Service) ListOverdue(ctx context.Context) ([]domain.Member, error) {
	ms, err := s.members.List(ctx, domain.MemberStatusApproved)
	if err != nil {
		return nil, err
	}
	today := s.cal.Today()
	out := make([]domain.Member, 0)
	for _, rec := range ms {
		m := members.ToDomain(rec)
		if m.IsAdmin() || m.HasCurrentSubscription(today) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
