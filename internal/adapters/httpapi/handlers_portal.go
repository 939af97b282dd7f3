package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eightonethree/cafe-api/internal/domain"
)

func (s *Server) IssueTodayVoucher(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	v, err := s.vouchers.IssueDaily(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VoucherResponse{Voucher: voucherFromDomain(v, s.now())})
}

func (s *Server) ListMyVouchers(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	vs, err := s.vouchers.ListMine(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	now := s.now()
	out := make([]Voucher, 0, len(vs))
	for _, v := range vs {
		out = append(out, voucherFromDomain(v, now))
	}
	writeJSON(w, http.StatusOK, ListVouchersResponse{Vouchers: out})
}

func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.CheckIn(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Session: sessionFromDomain(sess)})
}

func (s *Server) CheckOut(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.CheckOut(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: sessionFromDomain(sess)})
}

func (s *Server) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	occ, err := s.sessions.Occupancy(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occupancyFromDomain(occ))
}

func (s *Server) ListMySessions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	ss, err := s.sessions.History(r.Context(), p.MemberID, limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{Sessions: sessionsFromDomain(ss)})
}

func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body BookRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Date.Time.IsZero() {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid date", map[string]any{"date": "date is required"})
		return
	}
	b, err := s.bookings.Book(r.Context(), p.MemberID, body.Date.Time)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{Booking: bookingFromDomain(b)})
}

func (s *Server) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	bs, err := s.bookings.ListMine(r.Context(), p.MemberID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Booking, 0, len(bs))
	for _, b := range bs {
		out = append(out, bookingFromDomain(b))
	}
	writeJSON(w, http.StatusOK, ListBookingsResponse{Bookings: out})
}

func (s *Server) CancelBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	b, err := s.bookings.Cancel(r.Context(), p.MemberID, domain.BookingID(chi.URLParam(r, "bookingId")))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{Booking: bookingFromDomain(b)})
}

func (s *Server) GetAvailability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid date", map[string]any{"date": "must be YYYY-MM-DD"})
		return
	}
	av, err := s.bookings.Availability(r.Context(), date)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityFromDomain(av))
}

func (s *Server) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	ps, err := s.board.List(r.Context(), limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Post, 0, len(ps))
	for _, p := range ps {
		out = append(out, postFromDomain(p))
	}
	writeJSON(w, http.StatusOK, ListPostsResponse{Posts: out})
}

func (s *Server) CreatePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body CreatePostRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	post, err := s.board.Post(r.Context(), p.MemberID, body.Title, body.Body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PostResponse{Post: postFromDomain(post)})
}

func (s *Server) DeletePost(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	if err := s.board.Delete(r.Context(), p.MemberID, p.Role, domain.PostID(chi.URLParam(r, "postId"))); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
