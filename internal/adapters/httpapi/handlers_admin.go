package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eightonethree/cafe-api/internal/domain"
)

func (s *Server) ListOpenSessions(w http.ResponseWriter, r *http.Request) {
	ss, err := s.sessions.ListOpen(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{Sessions: sessionsFromDomain(ss)})
}

func (s *Server) ForceCheckOut(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.ForceCheckOut(r.Context(), p.MemberID, domain.SessionID(chi.URLParam(r, "sessionId")))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: sessionFromDomain(sess)})
}

func (s *Server) IssuePOSVoucher(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body IssueVoucherRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	v, err := s.vouchers.IssuePOS(r.Context(), p.MemberID, body.DiscountPercent, time.Duration(body.ValidForMinutes)*time.Minute)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, VoucherResponse{Voucher: voucherFromDomain(v, s.now())})
}

func (s *Server) LookupVoucher(w http.ResponseWriter, r *http.Request) {
	status, v, err := s.vouchers.Search(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	resp := VoucherLookupResponse{Status: string(status)}
	if v != nil {
		dto := voucherFromDomain(*v, s.now())
		resp.Voucher = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	code := domain.NormalizeVoucherCode(chi.URLParam(r, "code"))
	s.idempotent(w, r, p.MemberID, struct {
		Code string `json:"code"`
	}{Code: code}, func() (handlerResult, error) {
		v, err := s.vouchers.Redeem(r.Context(), code, p.MemberID)
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{status: http.StatusOK, body: VoucherResponse{Voucher: voucherFromDomain(v, s.now())}}, nil
	})
}

func (s *Server) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	entries, err := s.activity.Recent(r.Context(), limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Entries: entries})
}

// RunReset forces the daily reset now.
func (s *Server) RunReset(w http.ResponseWriter, r *http.Request) {
	out, err := s.reset.RunOnce(r.Context(), true)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	status := http.StatusOK
	if !out.Ran {
		status = http.StatusConflict
	}
	writeJSON(w, status, resetFromOutcome(out))
}
