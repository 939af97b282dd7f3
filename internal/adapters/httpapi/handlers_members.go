package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/payments"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/auth/token"
)

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := s.members.SignUp(r.Context(), members.SignUpInput{
		DisplayName: body.DisplayName,
		Email:       body.Email,
		Phone:       body.Phone,
		Password:    body.Password,
		Plan:        domain.Plan(body.Plan),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberResponse{Member: memberProfileFromDomain(m)})
}

func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	var body TokenRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := s.members.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if s.tokens == nil {
		writeError(w, r, http.StatusNotImplemented, "TOKENS_DISABLED", "token issuing is disabled in dev auth mode", nil)
		return
	}
	raw, exp, err := s.tokens.Issue(m.ID, m.Role)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		Member:      memberProfileFromDomain(m),
	})
}

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	m, err := s.members.GetMe(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberProfileFromDomain(m)})
}

func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body UpdateMeRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.idempotent(w, r, p.MemberID, canonicalUpdateMe(body), func() (handlerResult, error) {
		m, err := s.members.UpdateMe(r.Context(), p.MemberID, updateMeInputFromRequest(body))
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{status: http.StatusOK, body: MemberResponse{Member: memberProfileFromDomain(m)}}, nil
	})
}

func (s *Server) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	s.listPayments(w, r, p.MemberID)
}

// Admin.

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := s.members.List(r.Context(), domain.MemberStatus(r.URL.Query().Get("status")))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListMembersResponse{Members: membersFromDomain(ms)})
}

func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.members.Get(r.Context(), domain.MemberID(chi.URLParam(r, "memberId")))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberProfileFromDomain(m)})
}

// ChangeMemberStatus handles POST /admin/members/{memberId}/{action}.
func (s *Server) ChangeMemberStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	id := domain.MemberID(chi.URLParam(r, "memberId"))

	var (
		m   domain.Member
		err error
	)
	switch chi.URLParam(r, "action") {
	case "approve":
		m, err = s.members.Approve(r.Context(), p.MemberID, id)
	case "reject":
		m, err = s.members.Reject(r.Context(), p.MemberID, id)
	case "suspend":
		m, err = s.members.Suspend(r.Context(), p.MemberID, id)
	case "reinstate":
		m, err = s.members.Reinstate(r.Context(), p.MemberID, id)
	default:
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown member action", nil)
		return
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberProfileFromDomain(m)})
}

func (s *Server) ListMemberPayments(w http.ResponseWriter, r *http.Request) {
	s.listPayments(w, r, domain.MemberID(chi.URLParam(r, "memberId")))
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request, id domain.MemberID) {
	ps, err := s.payments.ListForMember(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Payment, 0, len(ps))
	for _, p := range ps {
		out = append(out, paymentFromDomain(p))
	}
	writeJSON(w, http.StatusOK, ListPaymentsResponse{Payments: out})
}

func (s *Server) RecordPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body RecordPaymentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	memberID := domain.MemberID(chi.URLParam(r, "memberId"))
	s.idempotent(w, r, p.MemberID, body, func() (handlerResult, error) {
		in := payments.RecordInput{AmountCents: body.AmountCents, Method: domain.PaymentMethod(body.Method)}
		if body.Plan != nil {
			in.Plan = domain.Plan(*body.Plan)
		}
		rec, err := s.payments.Record(r.Context(), p.MemberID, memberID, in)
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{status: http.StatusCreated, body: PaymentResponse{Payment: paymentFromDomain(rec)}}, nil
	})
}

func (s *Server) ListOverdue(w http.ResponseWriter, r *http.Request) {
	ms, err := s.payments.ListOverdue(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListMembersResponse{Members: membersFromDomain(ms)})
}

func (s *Server) principal(w http.ResponseWriter, r *http.Request) (token.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
	}
	return p, ok
}
