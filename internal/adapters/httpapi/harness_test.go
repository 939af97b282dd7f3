package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eightonethree/cafe-api/internal/adapters/events"
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
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/board"
	"github.com/eightonethree/cafe-api/internal/app/bookings"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/payments"
	"github.com/eightonethree/cafe-api/internal/app/reset"
	"github.com/eightonethree/cafe-api/internal/app/sessions"
	"github.com/eightonethree/cafe-api/internal/app/site"
	"github.com/eightonethree/cafe-api/internal/app/vouchers"
	"github.com/eightonethree/cafe-api/internal/platform/auth/token"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/platform/config"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, mailerport.Message) error { return nil }

type testAPI struct {
	h       http.Handler
	clk     *memclock.ManualClock
	members *members.Service
	tokens  *token.Service
}

// Friday 2024-03-01, 10:00 in Berlin.
var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	clk := memclock.NewManualClock(testNow)
	cal := clock.NewCalendar(clk, loc)

	memberRepo := memmemberrepo.NewRepo()
	sessionRepo := memsessionrepo.NewRepo()
	voucherRepo := memvoucherrepo.NewRepo()

	act := activity.NewService(memactivitylog.NewLog(50), events.NewLogPublisher(nil), clk, nil)
	memberSvc := members.NewService(memberRepo, clk, nopMailer{}, act)
	memberSvc.BcryptCost = bcrypt.MinCost

	content, err := site.LoadContent("")
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	tokens := token.NewService(config.TokenConfig{Issuer: "test-iss", Secret: "test-secret", TTL: time.Hour}, clk)

	api := NewServer(Deps{
		Members:  memberSvc,
		Vouchers: vouchers.NewService(voucherRepo, memberSvc, cal, act, 10),
		Sessions: sessions.NewService(sessionRepo, memberSvc, cal, act, sessions.Options{Capacity: 2, RequirePaidSubscription: true}),
		Bookings: bookings.NewService(membookingrepo.NewRepo(), memberSvc, cal, act, bookings.Options{Capacity: 2, WindowDays: 14}),
		Payments: payments.NewService(mempaymentrepo.NewRepo(memberRepo), memberRepo, cal, act),
		Board:    board.NewService(mempostrepo.NewRepo(), memberSvc, clk, act),
		Activity: act,
		Reset:    reset.NewService(sessionRepo, voucherRepo, memresetstate.NewStore(), memresetstate.NewLocker(), cal, act, nil),
		Site:     site.NewService(content, loc, clk, nopMailer{}, act),
		Tokens:   tokens,
		Idem:     memidempotency.NewStore(),
		Clock:    clk,
	})
	h := NewRouter(api, RouterOptions{AuthMiddleware: NewAuthMiddleware(tokens)})
	return &testAPI{h: h, clk: clk, members: memberSvc, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

// admin bootstraps an admin account and returns its token.
func (a *testAPI) admin(t *testing.T) string {
	t.Helper()
	m, err := a.members.CreateAdmin(context.Background(), members.CreateAdminInput{
		DisplayName: "Barista",
		Email:       "boss@example.com",
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	raw, _, err := a.tokens.Issue(m.ID, m.Role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return raw
}

// signUp registers a member through the API and logs them in.
func (a *testAPI) signUp(t *testing.T, name, email string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/members", "", map[string]any{
		"displayName": name,
		"email":       email,
		"phone":       "+49 170 1234567",
		"password":    "correct horse",
		"plan":        "MONTHLY",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up status=%d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[MemberResponse](t, rec)

	rec = a.do(t, http.MethodPost, "/auth/token", "", map[string]any{"email": email, "password": "correct horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("token status=%d body=%s", rec.Code, rec.Body.String())
	}
	return created.Member.MemberId, decode[TokenResponse](t, rec).AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, status, rec.Body.String())
	}
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("code=%q want=%q body=%s", er.Error.Code, code, rec.Body.String())
	}
	return er
}
