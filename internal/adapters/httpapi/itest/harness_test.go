package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eightonethree/cafe-api/internal/adapters/events"
	"github.com/eightonethree/cafe-api/internal/adapters/httpapi"
	memactivitylog "github.com/eightonethree/cafe-api/internal/adapters/memory/activitylog"
	membookingrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/bookingrepo"
	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	memidempotency "github.com/eightonethree/cafe-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/paymentrepo"
	mempostrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/postrepo"
	memresetstate "github.com/eightonethree/cafe-api/internal/adapters/memory/resetstate"
	memsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/sessionrepo"
	memvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/voucherrepo"
	pgbookingrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/bookingrepo"
	pgidempotency "github.com/eightonethree/cafe-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	pgpaymentrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/paymentrepo"
	pgpostrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/postrepo"
	pgresetstate "github.com/eightonethree/cafe-api/internal/adapters/postgres/resetstate"
	pgsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/sessionrepo"
	postgres_testutil "github.com/eightonethree/cafe-api/internal/adapters/postgres/testutil"
	pgvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/voucherrepo"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/board"
	"github.com/eightonethree/cafe-api/internal/app/bookings"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/payments"
	"github.com/eightonethree/cafe-api/internal/app/reset"
	"github.com/eightonethree/cafe-api/internal/app/sessions"
	"github.com/eightonethree/cafe-api/internal/app/site"
	"github.com/eightonethree/cafe-api/internal/app/vouchers"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	bookingrepoport "github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
	postrepoport "github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
	resetstateport "github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
	sessionrepoport "github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
	voucherrepoport "github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, mailerport.Message) error { return nil }

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock

	// adminID is a bootstrapped admin account.
	adminID string
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	// Monday 2024-01-08, 09:00 UTC.
	clk := memclock.NewManualClock(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	cal := clock.NewCalendar(clk, time.UTC)

	var (
		memberRepo  memberrepoport.Repository
		voucherRepo voucherrepoport.Repository
		sessionRepo sessionrepoport.Repository
		bookingRepo bookingrepoport.Repository
		paymentRepo paymentrepoport.Repository
		postRepo    postrepoport.Repository
		marker      resetstateport.Store
		locker      resetstateport.Locker
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		memberRepo = pgmemberrepo.NewRepo(pool)
		voucherRepo = pgvoucherrepo.NewRepo(pool)
		sessionRepo = pgsessionrepo.NewRepo(pool)
		bookingRepo = pgbookingrepo.NewRepo(pool)
		paymentRepo = pgpaymentrepo.NewRepo(pool)
		postRepo = pgpostrepo.NewRepo(pool)
		marker = pgresetstate.NewStore(pool)
		locker = pgresetstate.NewLocker(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		mr := memmemberrepo.NewRepo()
		memberRepo = mr
		voucherRepo = memvoucherrepo.NewRepo()
		sessionRepo = memsessionrepo.NewRepo()
		bookingRepo = membookingrepo.NewRepo()
		paymentRepo = mempaymentrepo.NewRepo(mr)
		postRepo = mempostrepo.NewRepo()
		marker = memresetstate.NewStore()
		locker = memresetstate.NewLocker()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	act := activity.NewService(memactivitylog.NewLog(100), events.NewLogPublisher(nil), clk, nil)
	memberSvc := members.NewService(memberRepo, clk, nopMailer{}, act)
	memberSvc.BcryptCost = bcrypt.MinCost

	admin, err := memberSvc.CreateAdmin(context.Background(), members.CreateAdminInput{
		DisplayName: "Owner",
		Email:       "owner@example.com",
		Password:    "owner-pass",
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	content, err := site.LoadContent("")
	if err != nil {
		t.Fatalf("load site content: %v", err)
	}

	resetSvc := reset.NewService(sessionRepo, voucherRepo, marker, locker, cal, act, nil)
	resetSvc.Keys = idemStore

	api := httpapi.NewServer(httpapi.Deps{
		Members:  memberSvc,
		Vouchers: vouchers.NewService(voucherRepo, memberSvc, cal, act, vouchers.DefaultDiscountPercent),
		Sessions: sessions.NewService(sessionRepo, memberSvc, cal, act, sessions.Options{Capacity: 13, RequirePaidSubscription: true}),
		Bookings: bookings.NewService(bookingRepo, memberSvc, cal, act, bookings.Options{Capacity: 13}),
		Payments: payments.NewService(paymentRepo, memberRepo, cal, act),
		Board:    board.NewService(postRepo, memberSvc, clk, act),
		Activity: act,
		Reset:    resetSvc,
		Site:     site.NewService(content, time.UTC, clk, nopMailer{}, act),
		Idem:     idemStore,
		Clock:    clk,
	})

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("", "")
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
		adminID: string(admin.ID),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

// doJSON sends body as JSON. Extra headers are given as name/value pairs.
func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// asAdmin sends the request as the bootstrapped admin.
func (s *testServer) asAdmin(t *testing.T, method string, path string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()
	return s.doJSON(t, method, path, s.adminID, body, append([]string{"X-Debug-Role", "ADMIN"}, headers...)...)
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

type memberEnvelope struct {
	Member struct {
		MemberId    string  `json:"memberId"`
		DisplayName string  `json:"displayName"`
		Email       string  `json:"email"`
		Status      string  `json:"status"`
		Bio         *string `json:"bio"`
		PaidThrough *string `json:"paidThrough"`
	} `json:"member"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
