package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/domain"
	activitylogport "github.com/eightonethree/cafe-api/internal/ports/out/activitylog"
	bookingrepoport "github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
	postrepoport "github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
	resetstateport "github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
	sessionrepoport "github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
	voucherrepoport "github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type VoucherRepoFactory func(t *testing.T) (voucherrepoport.Repository, CleanupFunc)
type SessionRepoFactory func(t *testing.T) (sessionrepoport.Repository, CleanupFunc)
type BookingRepoFactory func(t *testing.T) (bookingrepoport.Repository, CleanupFunc)
// PaymentRepoFactory receives the member repository the payment repository must update.
type PaymentRepoFactory func(t *testing.T, members memberrepoport.Repository) (paymentrepoport.Repository, CleanupFunc)
type PostRepoFactory func(t *testing.T) (postrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type ActivityLogFactory func(t *testing.T, capacity int) (activitylogport.Log, CleanupFunc)
type ResetStoreFactory func(t *testing.T) (resetstateport.Store, CleanupFunc)
type ResetLockerFactory func(t *testing.T) (resetstateport.Locker, CleanupFunc)

func open[T any](t *testing.T, f func(t *testing.T) (T, CleanupFunc)) T {
	t.Helper()
	v, cleanup := f(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return v
}

// seedMember inserts an approved member with a unique email and returns its ID.
func seedMember(t *testing.T, members memberrepoport.Repository, name string, now time.Time) domain.MemberID {
	t.Helper()
	id := domain.MemberID(uuid.NewString())
	if err := members.Create(context.Background(), memberrepoport.Member{
		ID:           id,
		DisplayName:  name,
		Email:        string(id) + "@example.com",
		PasswordHash: []byte("x"),
		Role:         domain.RoleMember,
		Status:       domain.MemberStatusApproved,
		Plan:         domain.PlanMonthly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed member %q: %v", name, err)
	}
	return id
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()
	store := open(t, newStore)

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.MemberID(uuid.NewString()),
		Method:   "PATCH",
		Route:    "/members/me",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	other := fp
	other.BodyHash = "something-else"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other fingerprint): ok=%v err=%v, want miss", ok, err)
	}

	fresh := fp
	fresh.BodyHash = "fresh"
	if err := store.Put(ctx, fresh, idempotencyport.Record{StatusCode: 200, ContentType: "application/json", Body: []byte("{}"), CreatedAt: time.Unix(5000, 0).UTC()}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	n, err := store.DeleteCreatedBefore(ctx, time.Unix(1000, 0).UTC())
	if err != nil || n < 1 {
		t.Fatalf("DeleteCreatedBefore: n=%d err=%v, want >=1", n, err)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expired record still present: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, fresh); err != nil || !ok {
		t.Fatalf("fresh record missing: ok=%v err=%v", ok, err)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()
	repo := open(t, newRepo)

	now := time.Unix(1000, 0).UTC()
	aID := domain.MemberID(uuid.NewString())
	aEmail := "alice-" + string(aID) + "@example.com"
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:           aID,
		DisplayName:  "Alice Johnson",
		Email:        aEmail,
		Phone:        "+15551234567",
		PasswordHash: []byte("hash-a"),
		Role:         domain.RoleMember,
		Status:       domain.MemberStatusPending,
		Plan:         domain.PlanMonthly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != aEmail || string(got.PasswordHash) != "hash-a" || got.Status != domain.MemberStatusPending {
		t.Fatalf("unexpected member: %#v", got)
	}
	if _, err := repo.GetByEmail(ctx, "ALICE-"+string(aID)+"@EXAMPLE.COM"); err != nil {
		t.Fatalf("GetByEmail case-insensitive: %v", err)
	}
	if _, err := repo.GetByID(ctx, domain.MemberID(uuid.NewString())); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: err=%v, want ErrNotFound", err)
	}

	// Email uniqueness.
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          domain.MemberID(uuid.NewString()),
		DisplayName: "Alice 2",
		Email:       aEmail,
		Role:        domain.RoleMember,
		Status:      domain.MemberStatusPending,
		Plan:        domain.PlanMonthly,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); !errors.Is(err, memberrepoport.ErrEmailAlreadyBound) {
		t.Fatalf("expected ErrEmailAlreadyBound, got %v", err)
	}

	// Update persists status, plan and paid-through.
	paid := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	bio := "espresso person"
	got.Status = domain.MemberStatusApproved
	got.Plan = domain.PlanAnnual
	got.PaidThrough = &paid
	got.Bio = &bio
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Status != domain.MemberStatusApproved || got.Plan != domain.PlanAnnual || got.PaidThrough == nil || !got.PaidThrough.Equal(paid) || got.Bio == nil || *got.Bio != bio {
		t.Fatalf("update not persisted: %#v", got)
	}

	// SetSubscription touches only plan and paid-through.
	later := time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)
	if err := repo.SetSubscription(ctx, aID, domain.PlanQuarterly, later, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	got, err = repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID after SetSubscription: %v", err)
	}
	if got.Plan != domain.PlanQuarterly || got.PaidThrough == nil || !got.PaidThrough.Equal(later) {
		t.Fatalf("subscription not persisted: %#v", got)
	}
	if got.Status != domain.MemberStatusApproved || got.Bio == nil || *got.Bio != bio {
		t.Fatalf("SetSubscription changed other fields: %#v", got)
	}
	if err := repo.SetSubscription(ctx, domain.MemberID(uuid.NewString()), domain.PlanMonthly, later, now); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("SetSubscription missing: err=%v, want ErrNotFound", err)
	}

	// Deterministic list ordering by displayName (case-insensitive) and status filter.
	bID := domain.MemberID(uuid.NewString())
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          bID,
		DisplayName: "bob",
		Email:       "bob-" + string(bID) + "@example.com",
		Role:        domain.RoleMember,
		Status:      domain.MemberStatusPending,
		Plan:        domain.PlanMonthly,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ia, ib := -1, -1
	for i, m := range all {
		switch m.ID {
		case aID:
			ia = i
		case bID:
			ib = i
		}
	}
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("unexpected ordering: a=%d b=%d", ia, ib)
	}
	pending, err := repo.List(ctx, domain.MemberStatusPending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	for _, m := range pending {
		if m.Status != domain.MemberStatusPending {
			t.Fatalf("List(PENDING) returned %s member", m.Status)
		}
		if m.ID == aID {
			t.Fatalf("approved member returned by List(PENDING)")
		}
	}
}

func RunVoucherRepo(t *testing.T, newMemberRepo MemberRepoFactory, newVoucherRepo VoucherRepoFactory) {
	t.Helper()
	ctx := context.Background()
	members := open(t, newMemberRepo)
	vouchers := open(t, newVoucherRepo)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	today := domain.DayOf(now, time.UTC)
	mID := seedMember(t, members, "Voucher Holder", now)

	code := "813-" + uuid.NewString()[:6]
	daily := domain.Voucher{
		ID:              domain.VoucherID(uuid.NewString()),
		Code:            code,
		Source:          domain.VoucherSourceDaily,
		MemberID:        &mID,
		IssuedOn:        today,
		ExpiresAt:       today.Add(24 * time.Hour),
		DiscountPercent: 10,
		CreatedAt:       now,
	}
	if err := vouchers.Create(ctx, daily); err != nil {
		t.Fatalf("Create daily: %v", err)
	}

	// Second DAILY voucher for the same member and day is refused.
	dup := daily
	dup.ID = domain.VoucherID(uuid.NewString())
	dup.Code = "813-" + uuid.NewString()[:6]
	if err := vouchers.Create(ctx, dup); !errors.Is(err, voucherrepoport.ErrAlreadyExists) {
		t.Fatalf("second daily: err=%v, want ErrAlreadyExists", err)
	}

	got, err := vouchers.GetDailyForMember(ctx, mID, today)
	if err != nil || got.Code != domain.NormalizeVoucherCode(code) {
		t.Fatalf("GetDailyForMember: v=%#v err=%v", got, err)
	}
	if _, err := vouchers.GetByCode(ctx, " "+code+" "); err != nil {
		t.Fatalf("GetByCode normalized: %v", err)
	}
	if _, err := vouchers.GetByCode(ctx, "813-NOPE00"); !errors.Is(err, voucherrepoport.ErrNotFound) {
		t.Fatalf("GetByCode missing: err=%v", err)
	}

	// Concurrent redeem: exactly one winner.
	const racers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		redeemed int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := vouchers.Redeem(ctx, code, mID, now.Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, voucherrepoport.ErrAlreadyRedeemed):
				redeemed++
			default:
				t.Errorf("Redeem: unexpected err %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 || redeemed != racers-1 {
		t.Fatalf("redeem race: wins=%d redeemed=%d", wins, redeemed)
	}

	// Expired unredeemed vouchers are purged; redeemed and still-valid ones are kept.
	stale := domain.Voucher{
		ID:              domain.VoucherID(uuid.NewString()),
		Code:            "813-" + uuid.NewString()[:6],
		Source:          domain.VoucherSourcePOS,
		IssuedOn:        domain.AddDays(today, -1),
		ExpiresAt:       today,
		DiscountPercent: 15,
		CreatedAt:       now.Add(-24 * time.Hour),
	}
	multiDay := stale
	multiDay.ID = domain.VoucherID(uuid.NewString())
	multiDay.Code = "813-" + uuid.NewString()[:6]
	multiDay.ExpiresAt = today.Add(48 * time.Hour)
	for _, v := range []domain.Voucher{stale, multiDay} {
		if err := vouchers.Create(ctx, v); err != nil {
			t.Fatalf("Create %s: %v", v.Code, err)
		}
	}

	// Redeeming exactly at ExpiresAt is too late.
	if _, err := vouchers.Redeem(ctx, stale.Code, mID, stale.ExpiresAt); !errors.Is(err, voucherrepoport.ErrExpired) {
		t.Fatalf("Redeem at expiry: err=%v, want ErrExpired", err)
	}
	if v, err := vouchers.GetByCode(ctx, stale.Code); err != nil || v.RedeemedAt != nil {
		t.Fatalf("expired voucher changed by Redeem: %#v err=%v", v, err)
	}

	n, err := vouchers.DeleteUnredeemedExpired(ctx, now)
	if err != nil || n < 1 {
		t.Fatalf("DeleteUnredeemedExpired: n=%d err=%v", n, err)
	}
	if _, err := vouchers.GetByCode(ctx, stale.Code); !errors.Is(err, voucherrepoport.ErrNotFound) {
		t.Fatalf("stale voucher still present: err=%v", err)
	}
	if _, err := vouchers.GetByCode(ctx, multiDay.Code); err != nil {
		t.Fatalf("unexpired voucher from yesterday purged: %v", err)
	}
	if _, err := vouchers.GetByCode(ctx, code); err != nil {
		t.Fatalf("today's voucher purged: %v", err)
	}

	mine, err := vouchers.ListByMember(ctx, mID)
	if err != nil || len(mine) != 1 || mine[0].RedeemedAt == nil {
		t.Fatalf("ListByMember: %#v err=%v", mine, err)
	}
}

func RunSessionRepo(t *testing.T, newMemberRepo MemberRepoFactory, newSessionRepo SessionRepoFactory) {
	t.Helper()
	ctx := context.Background()
	members := open(t, newMemberRepo)
	sessions := open(t, newSessionRepo)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	const capacity = 3

	ids := make([]domain.MemberID, 6)
	for i := range ids {
		ids[i] = seedMember(t, members, "Seat "+string(rune('A'+i)), now)
	}

	// Concurrent check-ins never exceed capacity.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		full int
	)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id domain.MemberID) {
			defer wg.Done()
			err := sessions.Open(ctx, domain.Session{
				ID:          domain.SessionID(uuid.NewString()),
				MemberID:    id,
				CheckedInAt: now.Add(time.Duration(i) * time.Second),
			}, capacity)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, sessionrepoport.ErrCapacityReached):
				full++
			default:
				t.Errorf("Open: unexpected err %v", err)
			}
		}(i, id)
	}
	wg.Wait()
	if wins != capacity || full != len(ids)-capacity {
		t.Fatalf("capacity race: wins=%d full=%d", wins, full)
	}
	if n, err := sessions.CountOpen(ctx); err != nil || n != capacity {
		t.Fatalf("CountOpen: n=%d err=%v", n, err)
	}

	openNow, err := sessions.ListOpen(ctx)
	if err != nil || len(openNow) != capacity {
		t.Fatalf("ListOpen: %#v err=%v", openNow, err)
	}
	for i := 1; i < len(openNow); i++ {
		if openNow[i].CheckedInAt.Before(openNow[i-1].CheckedInAt) {
			t.Fatalf("ListOpen not ordered by check-in time")
		}
	}

	holder := openNow[0].MemberID
	if err := sessions.Open(ctx, domain.Session{ID: domain.SessionID(uuid.NewString()), MemberID: holder, CheckedInAt: now}, capacity+10); !errors.Is(err, sessionrepoport.ErrAlreadyOpen) {
		t.Fatalf("double check-in: err=%v, want ErrAlreadyOpen", err)
	}

	closed, err := sessions.Close(ctx, holder, now.Add(time.Hour))
	if err != nil || closed.IsOpen() || closed.AutoClosed {
		t.Fatalf("Close: %#v err=%v", closed, err)
	}
	if _, err := sessions.Close(ctx, holder, now.Add(time.Hour)); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("Close twice: err=%v, want ErrNotFound", err)
	}
	again, err := sessions.CloseByID(ctx, closed.ID, now.Add(2*time.Hour))
	if err != nil || again.CheckedOutAt == nil || !again.CheckedOutAt.Equal(*closed.CheckedOutAt) {
		t.Fatalf("CloseByID on closed session changed it: %#v err=%v", again, err)
	}

	n, err := sessions.CloseAllOpen(ctx, now.Add(12*time.Hour))
	if err != nil || n != capacity-1 {
		t.Fatalf("CloseAllOpen: n=%d err=%v", n, err)
	}
	if c, _ := sessions.CountOpen(ctx); c != 0 {
		t.Fatalf("CountOpen after reset: %d", c)
	}

	hist, err := sessions.ListByMember(ctx, openNow[1].MemberID, 10)
	if err != nil || len(hist) != 1 || !hist[0].AutoClosed {
		t.Fatalf("ListByMember: %#v err=%v", hist, err)
	}
}

func RunBookingRepo(t *testing.T, newMemberRepo MemberRepoFactory, newBookingRepo BookingRepoFactory) {
	t.Helper()
	ctx := context.Background()
	members := open(t, newMemberRepo)
	bookings := open(t, newBookingRepo)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	// Far-off date keeps the suite independent of rows left by other tests.
	date := time.Date(2031, 1, 1+int(uuid.New().ID()%300), 0, 0, 0, 0, time.UTC)
	a := seedMember(t, members, "Booker A", now)
	b := seedMember(t, members, "Booker B", now)
	c := seedMember(t, members, "Booker C", now)

	first := domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: a, Date: date, CreatedAt: now}
	if err := bookings.Create(ctx, first, 2); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := bookings.Create(ctx, domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: a, Date: date, CreatedAt: now}, 2); !errors.Is(err, bookingrepoport.ErrAlreadyBooked) {
		t.Fatalf("duplicate booking: err=%v", err)
	}
	if err := bookings.Create(ctx, domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: b, Date: date, CreatedAt: now}, 2); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if err := bookings.Create(ctx, domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: c, Date: date, CreatedAt: now}, 2); !errors.Is(err, bookingrepoport.ErrFullyBooked) {
		t.Fatalf("over capacity: err=%v", err)
	}
	if n, err := bookings.CountActiveOnDate(ctx, date); err != nil || n != 2 {
		t.Fatalf("CountActiveOnDate: n=%d err=%v", n, err)
	}

	canceled, err := bookings.Cancel(ctx, first.ID, now.Add(time.Hour))
	if err != nil || canceled.IsActive() {
		t.Fatalf("Cancel: %#v err=%v", canceled, err)
	}
	// Seat freed: c can book, and a can rebook the date.
	if err := bookings.Create(ctx, domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: c, Date: date, CreatedAt: now}, 2); err != nil {
		t.Fatalf("Create c after cancel: %v", err)
	}

	got, err := bookings.GetByID(ctx, first.ID)
	if err != nil || got.MemberID != a {
		t.Fatalf("GetByID: %#v err=%v", got, err)
	}
	if _, err := bookings.GetByID(ctx, domain.BookingID(uuid.NewString())); !errors.Is(err, bookingrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: err=%v", err)
	}

	later := domain.AddDays(date, 1)
	if err := bookings.Create(ctx, domain.Booking{ID: domain.BookingID(uuid.NewString()), MemberID: a, Date: later, CreatedAt: now}, 2); err != nil {
		t.Fatalf("Create later: %v", err)
	}
	mine, err := bookings.ListByMember(ctx, a)
	if err != nil || len(mine) != 2 || !mine[0].Date.Equal(date) || !mine[1].Date.Equal(later) {
		t.Fatalf("ListByMember: %#v err=%v", mine, err)
	}
}

func RunPaymentRepo(t *testing.T, newMemberRepo MemberRepoFactory, newPaymentRepo PaymentRepoFactory) {
	t.Helper()
	ctx := context.Background()
	members := open(t, newMemberRepo)
	payments, cleanup := newPaymentRepo(t, members)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	admin := seedMember(t, members, "Admin", now)
	m := seedMember(t, members, "Payer", now)

	march := domain.SubscriptionPeriod{
		ID: domain.PaymentID(uuid.NewString()), MemberID: m, Plan: domain.PlanMonthly,
		AmountCents: 4500, Method: domain.PaymentMethodCard,
		PeriodStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		RecordedBy:  admin, CreatedAt: now,
	}
	april := march
	april.ID = domain.PaymentID(uuid.NewString())
	april.PeriodStart = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	april.PeriodEnd = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	for _, p := range []domain.SubscriptionPeriod{march, april} {
		if err := payments.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	got, err := payments.ListByMember(ctx, m)
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByMember: %#v err=%v", got, err)
	}
	if got[0].ID != april.ID || got[1].ID != march.ID {
		t.Fatalf("ListByMember not newest-first: %#v", got)
	}
	if got[0].AmountCents != 4500 || got[0].Method != domain.PaymentMethodCard || got[0].RecordedBy != admin {
		t.Fatalf("fields not persisted: %#v", got[0])
	}
	if none, err := payments.ListByMember(ctx, admin); err != nil || len(none) != 0 {
		t.Fatalf("ListByMember(admin): %#v err=%v", none, err)
	}

	payer, err := members.GetByID(ctx, m)
	if err != nil {
		t.Fatalf("GetByID payer: %v", err)
	}
	if payer.PaidThrough == nil || !payer.PaidThrough.Equal(april.PeriodEnd) || payer.Plan != domain.PlanMonthly {
		t.Fatalf("member subscription not moved with the payment: %#v", payer)
	}

	ghost := domain.MemberID(uuid.NewString())
	orphan := march
	orphan.ID = domain.PaymentID(uuid.NewString())
	orphan.MemberID = ghost
	if err := payments.Create(ctx, orphan); !errors.Is(err, paymentrepoport.ErrMemberNotFound) {
		t.Fatalf("Create for unknown member: err=%v, want ErrMemberNotFound", err)
	}
	if left, err := payments.ListByMember(ctx, ghost); err != nil || len(left) != 0 {
		t.Fatalf("payment stored for unknown member: %#v err=%v", left, err)
	}
}

func RunPostRepo(t *testing.T, newMemberRepo MemberRepoFactory, newPostRepo PostRepoFactory) {
	t.Helper()
	ctx := context.Background()
	members := open(t, newMemberRepo)
	posts := open(t, newPostRepo)

	now := time.Now().UTC().Truncate(time.Millisecond).Add(time.Hour)
	author := seedMember(t, members, "Poster", now)

	older := domain.BoardPost{ID: domain.PostID(uuid.NewString()), AuthorID: author, Title: "Older", Body: "first", CreatedAt: now}
	newer := domain.BoardPost{ID: domain.PostID(uuid.NewString()), AuthorID: author, Title: "Newer", Body: "second", CreatedAt: now.Add(time.Minute)}
	for _, p := range []domain.BoardPost{older, newer} {
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	recent, err := posts.ListRecent(ctx, 2)
	if err != nil || len(recent) != 2 || recent[0].ID != newer.ID || recent[1].ID != older.ID {
		t.Fatalf("ListRecent: %#v err=%v", recent, err)
	}

	if err := posts.SoftDelete(ctx, newer.ID, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := posts.GetByID(ctx, newer.ID); !errors.Is(err, postrepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted: err=%v", err)
	}
	if err := posts.SoftDelete(ctx, newer.ID, now); !errors.Is(err, postrepoport.ErrNotFound) {
		t.Fatalf("SoftDelete twice: err=%v", err)
	}
	recent, err = posts.ListRecent(ctx, 1)
	if err != nil || len(recent) != 1 || recent[0].ID != older.ID {
		t.Fatalf("ListRecent after delete: %#v err=%v", recent, err)
	}
}

func RunActivityLog(t *testing.T, newLog ActivityLogFactory) {
	t.Helper()
	ctx := context.Background()
	al := open(t, func(t *testing.T) (activitylogport.Log, CleanupFunc) { return newLog(t, 3) })

	base := time.Unix(5000, 0).UTC()
	for i := 0; i < 5; i++ {
		if err := al.Append(ctx, domain.ActivityEntry{
			At:      base.Add(time.Duration(i) * time.Second),
			Kind:    "test.event",
			Message: string(rune('a' + i)),
		}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := al.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 || got[0].Message != "e" || got[2].Message != "c" {
		t.Fatalf("Recent: %#v", got)
	}
	got, err = al.Recent(ctx, 1)
	if err != nil || len(got) != 1 || got[0].Message != "e" {
		t.Fatalf("Recent(1): %#v err=%v", got, err)
	}
}

func RunResetStore(t *testing.T, newStore ResetStoreFactory) {
	t.Helper()
	ctx := context.Background()
	store := open(t, newStore)

	if _, ok, err := store.Get(ctx); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}
	m := resetstateport.Marker{
		Day: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		At:  time.Date(2024, 3, 1, 0, 0, 5, 0, time.UTC),
	}
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	m.Day = m.Day.AddDate(0, 0, 1)
	m.At = m.At.Add(24 * time.Hour)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	got, ok, err := store.Get(ctx)
	if err != nil || !ok || !got.Day.Equal(m.Day) || !got.At.Equal(m.At) {
		t.Fatalf("Get: %#v ok=%v err=%v", got, ok, err)
	}
}

func RunResetLocker(t *testing.T, newLocker ResetLockerFactory) {
	t.Helper()
	ctx := context.Background()
	locker := open(t, newLocker)

	name := "reset-" + uuid.NewString()
	unlock, ok, err := locker.TryLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	if _, ok, err := locker.TryLock(ctx, name, time.Minute); err != nil || ok {
		t.Fatalf("TryLock while held: ok=%v err=%v", ok, err)
	}
	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	unlock, ok, err = locker.TryLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock after unlock: ok=%v err=%v", ok, err)
	}
	_ = unlock(ctx)
}
