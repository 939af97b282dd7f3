package itest

import (
	"net/http"
	"testing"
	"time"
)

func signUpApproved(t *testing.T, srv *testServer, name, email string) string {
	t.Helper()
	status, body, _ := srv.doJSON(t, http.MethodPost, "/members", "", map[string]any{
		"displayName": name,
		"email":       email,
		"phone":       "+4917012345678",
		"password":    "member-pass",
		"plan":        "MONTHLY",
	})
	requireStatus(t, status, body, http.StatusCreated)
	id := mustUnmarshal[memberEnvelope](t, body).Member.MemberId

	status, body, _ = srv.asAdmin(t, http.MethodPost, "/admin/members/"+id+"/approve", nil)
	requireStatus(t, status, body, http.StatusOK)
	status, body, _ = srv.asAdmin(t, http.MethodPost, "/admin/members/"+id+"/payments", map[string]any{
		"amountCents": 4500,
		"method":      "CARD",
	})
	requireStatus(t, status, body, http.StatusCreated)
	return id
}

func TestPortal_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			bob := signUpApproved(t, srv, "Bob", "bob@example.com")

			type voucherEnvelope struct {
				Voucher struct {
					Code   string `json:"code"`
					Status string `json:"status"`
				} `json:"voucher"`
			}

			// Daily voucher is stable for the day.
			var code string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/vouchers/today", bob, nil)
				requireStatus(t, status, body, http.StatusOK)
				code = mustUnmarshal[voucherEnvelope](t, body).Voucher.Code

				status, body, _ = srv.doJSON(t, http.MethodPost, "/vouchers/today", bob, nil)
				requireStatus(t, status, body, http.StatusOK)
				if again := mustUnmarshal[voucherEnvelope](t, body).Voucher.Code; again != code {
					t.Fatalf("code=%q want=%q", again, code)
				}
			}

			// Check in, and check in again.
			var sessionID string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/sessions/check-in", bob, nil)
				requireStatus(t, status, body, http.StatusCreated)
				sessionID = mustUnmarshal[struct {
					Session struct {
						SessionId string `json:"sessionId"`
					} `json:"session"`
				}](t, body).Session.SessionId

				status, body, _ = srv.doJSON(t, http.MethodPost, "/sessions/check-in", bob, nil)
				requireErrorCode(t, status, body, http.StatusConflict, "ALREADY_CHECKED_IN")

				status, body, _ = srv.asAdmin(t, http.MethodGet, "/admin/sessions", nil)
				requireStatus(t, status, body, http.StatusOK)
				open := mustUnmarshal[struct {
					Sessions []struct {
						SessionId string `json:"sessionId"`
					} `json:"sessions"`
				}](t, body)
				if len(open.Sessions) != 1 || open.Sessions[0].SessionId != sessionID {
					t.Fatalf("open sessions=%s", string(body))
				}
			}

			// Next day: the reset closes the session and purges yesterday's voucher.
			srv.clk.Advance(24 * time.Hour)
			{
				status, body, _ := srv.asAdmin(t, http.MethodPost, "/admin/reset", nil)
				requireStatus(t, status, body, http.StatusOK)
				out := mustUnmarshal[struct {
					Ran            bool `json:"ran"`
					ClosedSessions int  `json:"closedSessions"`
					PurgedVouchers int  `json:"purgedVouchers"`
				}](t, body)
				if !out.Ran || out.ClosedSessions != 1 || out.PurgedVouchers != 1 {
					t.Fatalf("reset=%s", string(body))
				}

				status, body, _ = srv.asAdmin(t, http.MethodGet, "/admin/vouchers/"+code, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[struct {
					Status string `json:"status"`
				}](t, body); got.Status != "none" {
					t.Fatalf("lookup status=%q want none", got.Status)
				}

				status, body, _ = srv.doJSON(t, http.MethodPost, "/sessions/check-out", bob, nil)
				requireErrorCode(t, status, body, http.StatusConflict, "NOT_CHECKED_IN")
			}

			// POS voucher: issue, redeem, redeem again.
			{
				status, body, _ := srv.asAdmin(t, http.MethodPost, "/admin/vouchers", map[string]any{"discountPercent": 25})
				requireStatus(t, status, body, http.StatusCreated)
				pos := mustUnmarshal[voucherEnvelope](t, body).Voucher.Code

				status, body, _ = srv.asAdmin(t, http.MethodPost, "/admin/vouchers/"+pos+"/redeem", nil)
				requireStatus(t, status, body, http.StatusOK)
				status, body, _ = srv.asAdmin(t, http.MethodPost, "/admin/vouchers/"+pos+"/redeem", nil)
				requireErrorCode(t, status, body, http.StatusConflict, "VOUCHER_ALREADY_REDEEMED")
			}

			// Bookings within the window.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/bookings", bob, map[string]any{"date": "2024-01-12"})
				requireStatus(t, status, body, http.StatusCreated)

				status, body, _ = srv.doJSON(t, http.MethodPost, "/bookings", bob, map[string]any{"date": "2024-03-01"})
				requireErrorCode(t, status, body, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
			}

			// Site pages are public.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/site/hours", "", nil)
				requireStatus(t, status, body, http.StatusOK)
				status, body, _ = srv.doJSON(t, http.MethodPost, "/site/contact", "", map[string]any{
					"name":    "Walk In",
					"email":   "walkin@example.com",
					"message": "Do you have oat milk?",
				})
				requireStatus(t, status, body, http.StatusAccepted)
			}
		})
	}
}
