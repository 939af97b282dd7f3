package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	memsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/sessionrepo"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
)

type gate struct {
	mu      sync.Mutex
	members map[domain.MemberID]domain.Member
}

func (g *gate) RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return domain.Member{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
	}
	if m.Status != domain.MemberStatusApproved {
		return domain.Member{}, apperr.Forbidden("MEMBER_NOT_APPROVED", "not approved")
	}
	return m, nil
}

func (g *gate) add(id domain.MemberID, paidThrough *time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[id] = domain.Member{ID: id, DisplayName: string(id), Status: domain.MemberStatusApproved, PaidThrough: paidThrough}
}

var start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) (*Service, *gate, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(start)
	g := &gate{members: map[domain.MemberID]domain.Member{}}
	svc := NewService(memsessionrepo.NewRepo(), g, clock.NewCalendar(clk, time.UTC), activity.Nop{}, opts)
	return svc, g, clk
}

func TestCheckIn_CapacityOfThirteen(t *testing.T) {
	t.Parallel()

	svc, g, _ := newTestService(t, Options{})
	ctx := context.Background()
	require.Equal(t, 13, svc.Capacity())

	for i := 0; i < 14; i++ {
		g.add(domain.MemberID(fmt.Sprintf("m-%02d", i)), nil)
	}
	for i := 0; i < 13; i++ {
		_, err := svc.CheckIn(ctx, domain.MemberID(fmt.Sprintf("m-%02d", i)))
		require.NoError(t, err)
	}

	_, err := svc.CheckIn(ctx, "m-13")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "CAPACITY_REACHED", ae.Code)
	require.Equal(t, 13, ae.Details["capacity"])
	require.Equal(t, 13, ae.Details["occupied"])

	occ, err := svc.Occupancy(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Occupancy{Occupied: 13, Capacity: 13, Available: 0}, occ)

	_, err = svc.CheckOut(ctx, "m-00")
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, "m-13")
	require.NoError(t, err)
}

func TestCheckIn_ConcurrentNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	svc, g, _ := newTestService(t, Options{Capacity: 5})
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		g.add(domain.MemberID(fmt.Sprintf("m-%02d", i)), nil)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.CheckIn(ctx, domain.MemberID(fmt.Sprintf("m-%02d", i)))
		}(i)
	}
	wg.Wait()

	open, err := svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 5)
}

func TestCheckIn_Rules(t *testing.T) {
	t.Parallel()

	svc, g, clk := newTestService(t, Options{RequirePaidSubscription: true})
	ctx := context.Background()

	yesterday := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	g.add("lapsed", &yesterday)
	g.add("paid", &today)
	g.add("never", nil)

	_, err := svc.CheckIn(ctx, "lapsed")
	require.True(t, apperr.Is(err, "SUBSCRIPTION_REQUIRED"))
	_, err = svc.CheckIn(ctx, "never")
	require.True(t, apperr.Is(err, "SUBSCRIPTION_REQUIRED"))
	_, err = svc.CheckIn(ctx, "ghost")
	require.True(t, apperr.Is(err, "MEMBER_NOT_FOUND"))

	sess, err := svc.CheckIn(ctx, "paid")
	require.NoError(t, err)
	require.True(t, sess.IsOpen())
	_, err = svc.CheckIn(ctx, "paid")
	require.True(t, apperr.Is(err, "ALREADY_CHECKED_IN"))

	clk.Advance(90 * time.Minute)
	closed, err := svc.CheckOut(ctx, "paid")
	require.NoError(t, err)
	require.Equal(t, sess.ID, closed.ID)
	require.NotNil(t, closed.CheckedOutAt)
	require.Equal(t, 90*time.Minute, closed.CheckedOutAt.Sub(closed.CheckedInAt))

	_, err = svc.CheckOut(ctx, "paid")
	require.True(t, apperr.Is(err, "NOT_CHECKED_IN"))
}

func TestForceCheckOut_Idempotent(t *testing.T) {
	t.Parallel()

	svc, g, clk := newTestService(t, Options{})
	ctx := context.Background()
	g.add("alice", nil)

	sess, err := svc.CheckIn(ctx, "alice")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	first, err := svc.ForceCheckOut(ctx, "admin", sess.ID)
	require.NoError(t, err)
	require.NotNil(t, first.CheckedOutAt)

	clk.Advance(time.Hour)
	second, err := svc.ForceCheckOut(ctx, "admin", sess.ID)
	require.NoError(t, err)
	require.True(t, first.CheckedOutAt.Equal(*second.CheckedOutAt))

	_, err = svc.ForceCheckOut(ctx, "admin", "missing")
	require.True(t, apperr.Is(err, "SESSION_NOT_FOUND"))

	hist, err := svc.History(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
}
