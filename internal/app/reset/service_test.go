package reset

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	memidempotency "github.com/eightonethree/cafe-api/internal/adapters/memory/idempotency"
	memresetstate "github.com/eightonethree/cafe-api/internal/adapters/memory/resetstate"
	memsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/sessionrepo"
	memvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/voucherrepo"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
	"github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *recorder) Record(ctx context.Context, e activity.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) days() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Kind == "reset.completed" {
			out = append(out, e.Data["day"].(string))
		}
	}
	return out
}

type fixture struct {
	svc      *Service
	clk      *memclock.ManualClock
	sessions *memsessionrepo.Repo
	vouchers *memvoucherrepo.Repo
	marker   *memresetstate.Store
	locker   *memresetstate.Locker
	rec      *recorder
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	f := fixture{
		clk:      memclock.NewManualClock(now),
		sessions: memsessionrepo.NewRepo(),
		vouchers: memvoucherrepo.NewRepo(),
		marker:   memresetstate.NewStore(),
		locker:   memresetstate.NewLocker(),
		rec:      &recorder{},
	}
	f.svc = NewService(f.sessions, f.vouchers, f.marker, f.locker, clock.NewCalendar(f.clk, loc), f.rec, zaptest.NewLogger(t))
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dailyVoucher(code string, member domain.MemberID, issued time.Time) domain.Voucher {
	return domain.Voucher{
		ID:              domain.VoucherID(code),
		Code:            code,
		Source:          domain.VoucherSourceDaily,
		MemberID:        &member,
		IssuedOn:        issued,
		ExpiresAt:       issued.Add(23 * time.Hour),
		DiscountPercent: 10,
		CreatedAt:       issued,
	}
}

func TestRunOnce_ClosesSessionsAndPurgesVouchers(t *testing.T) {
	// 00:00:05 in Berlin on March 2nd.
	f := newFixture(t, time.Date(2024, 3, 1, 23, 0, 5, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, f.sessions.Open(ctx, domain.Session{ID: "s1", MemberID: "alice", CheckedInAt: f.clk.Now().Add(-5 * time.Hour)}, 13))
	require.NoError(t, f.sessions.Open(ctx, domain.Session{ID: "s2", MemberID: "bob", CheckedInAt: f.clk.Now().Add(-2 * time.Hour)}, 13))

	require.NoError(t, f.vouchers.Create(ctx, dailyVoucher("813-AAAAAA", "alice", day(2024, 3, 1))))
	require.NoError(t, f.vouchers.Create(ctx, dailyVoucher("813-BBBBBB", "bob", day(2024, 3, 1))))
	require.NoError(t, f.vouchers.Create(ctx, dailyVoucher("813-CCCCCC", "carol", day(2024, 3, 2))))
	_, err := f.vouchers.Redeem(ctx, "813-BBBBBB", "admin", f.clk.Now().Add(-time.Hour))
	require.NoError(t, err)

	out, err := f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Ran)
	require.Equal(t, day(2024, 3, 2), out.Day)
	require.Equal(t, 2, out.ClosedSessions)
	require.Equal(t, 1, out.PurgedVouchers)

	n, err := f.sessions.CountOpen(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	hist, err := f.sessions.ListByMember(ctx, "alice", 1)
	require.NoError(t, err)
	require.True(t, hist[0].AutoClosed)
	require.True(t, hist[0].CheckedOutAt.Equal(f.clk.Now()))

	_, err = f.vouchers.GetByCode(ctx, "813-AAAAAA")
	require.Error(t, err)
	_, err = f.vouchers.GetByCode(ctx, "813-BBBBBB")
	require.NoError(t, err)
	_, err = f.vouchers.GetByCode(ctx, "813-CCCCCC")
	require.NoError(t, err)

	m, ok, err := f.marker.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, day(2024, 3, 2), m.Day)

	again, err := f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.False(t, again.Ran)
	require.Equal(t, "already_done", again.SkipReason)

	forced, err := f.svc.RunOnce(ctx, true)
	require.NoError(t, err)
	require.True(t, forced.Ran)
	require.Equal(t, []string{"2024-03-02", "2024-03-02"}, f.rec.days())
}

func TestRunOnce_KeepsMultiDayPOSVoucher(t *testing.T) {
	// 08:00 in Berlin on March 2nd.
	f := newFixture(t, time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Issued at the till at 20:00 the evening before, valid for three days.
	issuedAt := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	require.NoError(t, f.vouchers.Create(ctx, domain.Voucher{
		ID:              "pos-1",
		Code:            "813-POSPOS",
		Source:          domain.VoucherSourcePOS,
		IssuedOn:        day(2024, 3, 1),
		ExpiresAt:       issuedAt.Add(72 * time.Hour),
		DiscountPercent: 20,
		CreatedAt:       issuedAt,
	}))

	out, err := f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Ran)
	require.Zero(t, out.PurgedVouchers)

	v, err := f.vouchers.GetByCode(ctx, "813-POSPOS")
	require.NoError(t, err)
	require.Equal(t, domain.VoucherStatusFound, v.StatusAt(f.clk.Now()))
}

func TestRunOnce_PrunesExpiredIdempotencyKeys(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	keys := memidempotency.NewStore()
	f.svc.Keys = keys
	old := idempotency.Fingerprint{Key: "old", Subject: "admin", Method: "POST", Route: "/admin/vouchers/813-AAAAAA/redeem"}
	fresh := idempotency.Fingerprint{Key: "fresh", Subject: "admin", Method: "POST", Route: "/admin/vouchers/813-BBBBBB/redeem"}
	require.NoError(t, keys.Put(ctx, old, idempotency.Record{StatusCode: 200, CreatedAt: f.clk.Now().Add(-30 * time.Hour)}))
	require.NoError(t, keys.Put(ctx, fresh, idempotency.Record{StatusCode: 200, CreatedAt: f.clk.Now().Add(-time.Hour)}))

	out, err := f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Ran)
	require.Equal(t, 1, out.PrunedKeys)

	_, ok, err := keys.Get(ctx, old)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = keys.Get(ctx, fresh)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunOnce_SkipsWhileAnotherInstanceHoldsLock(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	unlock, ok, err := f.locker.TryLock(ctx, LockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	out, err := f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.False(t, out.Ran)
	require.Equal(t, "locked", out.SkipReason)

	require.NoError(t, unlock(ctx))
	out, err = f.svc.RunOnce(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Ran)
}

func TestRun_CatchesUpThenResetsAtMidnight(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The process was down over the last reset.
	require.NoError(t, f.marker.Put(ctx, resetstate.Marker{Day: day(2024, 2, 28), At: time.Date(2024, 2, 27, 23, 0, 0, 0, time.UTC)}))

	var delays []time.Duration
	f.svc.wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		if len(delays) == 3 {
			cancel()
			return ctx.Err()
		}
		f.clk.Advance(d)
		return nil
	}

	err := f.svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"2024-03-02", "2024-03-03", "2024-03-04"}, f.rec.days())

	// 15:00 Berlin until midnight, plus slack.
	require.Equal(t, 9*time.Hour+midnightSlack, delays[0])
	// Each later wait starts one slack past midnight.
	require.Equal(t, 24*time.Hour, delays[1])
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()

	require.Eventually(t, func() bool { return len(f.rec.days()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
