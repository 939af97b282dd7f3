package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

func TestAuth_MissingBearerToken_Returns401WithRequestID(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/members/me", "", nil)
	er := requireError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	if !er.Error.RequestId.IsSpecified() || er.Error.RequestId.IsNull() {
		t.Fatalf("expected requestId in error envelope, body=%s", rec.Body.String())
	}
}

func TestAuth_MalformedAuthorizationHeader_Returns401(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/members/me", "", nil, "Authorization", "Basic abc")
	requireError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuth_ValidToken_AllowsRequest(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	_, tok := api.signUp(t, "Ada Lovelace", "ada@example.com")

	rec := api.do(t, http.MethodGet, "/members/me", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[MemberResponse](t, rec)
	if got.Member.Email != "ada@example.com" || got.Member.Status != string(domain.MemberStatusPending) {
		t.Fatalf("unexpected member: %+v", got.Member)
	}
}

func TestAuth_ExpiredToken_Returns401(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	_, tok := api.signUp(t, "Ada Lovelace", "ada@example.com")

	api.clk.Advance(2 * time.Hour)
	rec := api.do(t, http.MethodGet, "/members/me", tok, nil)
	requireError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuth_MemberOnAdminRoute_Returns403(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	_, tok := api.signUp(t, "Ada Lovelace", "ada@example.com")

	rec := api.do(t, http.MethodGet, "/admin/members", tok, nil)
	requireError(t, rec, http.StatusForbidden, "FORBIDDEN")
}

func TestAuth_PublicRoutesNeedNoToken(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/site/menu", "/site/hours", "/site/contact"} {
		rec := api.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestInvalidJSON_Returns422(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/members", "", "{")
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestDevAuth_UsesDebugHeaders(t *testing.T) {
	t.Parallel()

	var got struct {
		sub  domain.MemberID
		role domain.Role
	}
	h := NewDevAuthMiddleware("", "")(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		got.sub, got.role = p.MemberID, p.Role
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin/members", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no subject: status=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/members", nil)
	req.Header.Set("X-Debug-Subject", "m-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member role: status=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/members", nil)
	req.Header.Set("X-Debug-Subject", "m-1")
	req.Header.Set("X-Debug-Role", "admin")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin role: status=%d", rec.Code)
	}
	if got.sub != "m-1" || got.role != domain.RoleAdmin {
		t.Fatalf("principal=%+v", got)
	}
}
