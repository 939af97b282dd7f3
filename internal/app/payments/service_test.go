package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	memmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/paymentrepo"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc     *Service
	members *memmemberrepo.Repo
	clk     *memclock.ManualClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC))
	mr := memmemberrepo.NewRepo()
	svc := NewService(mempaymentrepo.NewRepo(mr), mr, clock.NewCalendar(clk, time.UTC), activity.Nop{})
	return fixture{svc: svc, members: mr, clk: clk}
}

func (f fixture) seed(t *testing.T, id domain.MemberID, role domain.Role, plan domain.Plan, paidThrough *time.Time) {
	t.Helper()
	now := f.clk.Now()
	require.NoError(t, f.members.Create(context.Background(), memberrepo.Member{
		ID:          id,
		DisplayName: string(id),
		Email:       string(id) + "@example.com",
		Role:        role,
		Status:      domain.MemberStatusApproved,
		Plan:        plan,
		PaidThrough: paidThrough,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func TestRecord_ExtendsPaidThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", domain.RoleMember, domain.PlanMonthly, nil)

	// Lapsed: the period starts today. Jan 31 + 1 month clamps via AddDate normalization.
	p1, err := f.svc.Record(ctx, "admin", "alice", RecordInput{AmountCents: 4900, Method: domain.PaymentMethodCard})
	require.NoError(t, err)
	require.Equal(t, day(2024, 1, 31), p1.PeriodStart)
	require.Equal(t, day(2024, 3, 1), p1.PeriodEnd)

	// Paid ahead: the next period starts the day after.
	p2, err := f.svc.Record(ctx, "admin", "alice", RecordInput{AmountCents: 12900, Method: domain.PaymentMethodCash, Plan: domain.PlanQuarterly})
	require.NoError(t, err)
	require.Equal(t, day(2024, 3, 2), p2.PeriodStart)
	require.Equal(t, day(2024, 6, 1), p2.PeriodEnd)

	m, err := f.members.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.PlanQuarterly, m.Plan)
	require.NotNil(t, m.PaidThrough)
	require.Equal(t, day(2024, 6, 1), *m.PaidThrough)

	got, err := f.svc.ListForMember(ctx, "alice")
	require.NoError(t, err)
	if diff := cmp.Diff([]domain.SubscriptionPeriod{p2, p1}, got); diff != "" {
		t.Fatalf("payments mismatch (-want +got):\n%s", diff)
	}
}

// suspendingMembers suspends the member right after the payment service has read it.
type suspendingMembers struct {
	*memmemberrepo.Repo
}

func (r suspendingMembers) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	m, err := r.Repo.GetByID(ctx, id)
	if err != nil {
		return m, err
	}
	changed := m
	changed.Status = domain.MemberStatusSuspended
	if err := r.Repo.Update(ctx, changed); err != nil {
		return memberrepo.Member{}, err
	}
	return m, nil
}

func TestRecord_KeepsStatusChangedMeanwhile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", domain.RoleMember, domain.PlanMonthly, nil)
	svc := NewService(mempaymentrepo.NewRepo(f.members), suspendingMembers{f.members}, clock.NewCalendar(f.clk, time.UTC), activity.Nop{})

	p, err := svc.Record(ctx, "admin", "alice", RecordInput{AmountCents: 4900, Method: domain.PaymentMethodCard})
	require.NoError(t, err)

	m, err := f.members.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.MemberStatusSuspended, m.Status)
	require.NotNil(t, m.PaidThrough)
	require.Equal(t, p.PeriodEnd, *m.PaidThrough)
}

type brokenSubscriptions struct{}

func (brokenSubscriptions) SetSubscription(context.Context, domain.MemberID, domain.Plan, time.Time, time.Time) error {
	return errors.New("write failed")
}

func TestRecord_FailedMemberUpdateStoresNoPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", domain.RoleMember, domain.PlanMonthly, nil)
	svc := NewService(mempaymentrepo.NewRepo(brokenSubscriptions{}), f.members, clock.NewCalendar(f.clk, time.UTC), activity.Nop{})

	_, err := svc.Record(ctx, "admin", "alice", RecordInput{AmountCents: 4900, Method: domain.PaymentMethodCard})
	require.Error(t, err)

	got, err := svc.ListForMember(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, got)

	m, err := f.members.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, m.PaidThrough)
}

func TestRecord_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", domain.RoleMember, domain.PlanMonthly, nil)

	_, err := f.svc.Record(ctx, "admin", "alice", RecordInput{AmountCents: 0, Method: "BITCOIN", Plan: "WEEKLY"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "VALIDATION_ERROR", ae.Code)
	require.Len(t, ae.Details, 3)

	_, err = f.svc.Record(ctx, "admin", "ghost", RecordInput{AmountCents: 100, Method: domain.PaymentMethodCash})
	require.True(t, apperr.Is(err, "MEMBER_NOT_FOUND"))
	_, err = f.svc.ListForMember(ctx, "ghost")
	require.True(t, apperr.Is(err, "MEMBER_NOT_FOUND"))
}

func TestListOverdue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	yesterday := day(2024, 1, 30)
	today := day(2024, 1, 31)
	f.seed(t, "lapsed", domain.RoleMember, domain.PlanMonthly, &yesterday)
	f.seed(t, "current", domain.RoleMember, domain.PlanMonthly, &today)
	f.seed(t, "never", domain.RoleMember, domain.PlanAnnual, nil)
	f.seed(t, "boss", domain.RoleAdmin, domain.PlanMonthly, nil)

	got, err := f.svc.ListOverdue(ctx)
	require.NoError(t, err)
	ids := make([]domain.MemberID, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	require.Equal(t, []domain.MemberID{"lapsed", "never"}, ids)
}
