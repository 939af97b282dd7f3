package httpapi

import (
	"go.uber.org/zap"

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
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
)

// Deps are the application services the HTTP layer delegates to.
type Deps struct {
	Members  *members.Service
	Vouchers *vouchers.Service
	Sessions *sessions.Service
	Bookings *bookings.Service
	Payments *payments.Service
	Board    *board.Service
	Activity *activity.Service
	Reset    *reset.Service
	Site     *site.Service
	Tokens   *token.Service

	Idem   idempotency.Store
	Clock  clockport.Clock
	Logger *zap.Logger
}

// Server implements the JSON API handlers.
type Server struct {
	members  *members.Service
	vouchers *vouchers.Service
	sessions *sessions.Service
	bookings *bookings.Service
	payments *payments.Service
	board    *board.Service
	activity *activity.Service
	reset    *reset.Service
	site     *site.Service
	tokens   *token.Service

	idem   idempotency.Store
	clk    clockport.Clock
	logger *zap.Logger
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		members:  d.Members,
		vouchers: d.Vouchers,
		sessions: d.Sessions,
		bookings: d.Bookings,
		payments: d.Payments,
		board:    d.Board,
		activity: d.Activity,
		reset:    d.Reset,
		site:     d.Site,
		tokens:   d.Tokens,
		idem:     d.Idem,
		clk:      d.Clock,
		logger:   logger,
	}
}
