package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware authenticates member and admin routes. Public routes bypass it.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(NewRequestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Public.
	r.Route("/site", func(r chi.Router) {
		r.Get("/menu", s.GetMenu)
		r.Get("/hours", s.GetHours)
		r.Get("/contact", s.GetContact)
		r.Post("/contact", s.SubmitContact)
	})
	r.Post("/members", s.SignUp)
	r.Post("/auth/token", s.IssueToken)

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Get("/members/me", s.GetMe)
		r.Patch("/members/me", s.UpdateMe)
		r.Get("/members/me/payments", s.ListMyPayments)

		r.Post("/vouchers/today", s.IssueTodayVoucher)
		r.Get("/vouchers/mine", s.ListMyVouchers)

		r.Post("/sessions/check-in", s.CheckIn)
		r.Post("/sessions/check-out", s.CheckOut)
		r.Get("/sessions/occupancy", s.GetOccupancy)
		r.Get("/sessions/mine", s.ListMySessions)

		r.Post("/bookings", s.CreateBooking)
		r.Get("/bookings/mine", s.ListMyBookings)
		r.Get("/bookings/availability", s.GetAvailability)
		r.Delete("/bookings/{bookingId}", s.CancelBooking)

		r.Get("/board/posts", s.ListPosts)
		r.Post("/board/posts", s.CreatePost)
		r.Delete("/board/posts/{postId}", s.DeletePost)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/members", s.ListMembers)
			r.Get("/members/{memberId}", s.GetMember)
			r.Post("/members/{memberId}/{action}", s.ChangeMemberStatus)
			r.Get("/members/{memberId}/payments", s.ListMemberPayments)
			r.Post("/members/{memberId}/payments", s.RecordPayment)
			r.Get("/payments/overdue", s.ListOverdue)

			r.Get("/sessions", s.ListOpenSessions)
			r.Post("/sessions/{sessionId}/check-out", s.ForceCheckOut)

			r.Post("/vouchers", s.IssuePOSVoucher)
			r.Get("/vouchers/{code}", s.LookupVoucher)
			r.Post("/vouchers/{code}/redeem", s.RedeemVoucher)

			r.Get("/activity", s.ListActivity)
			r.Post("/reset", s.RunReset)
		})
	})

	return r
}
