package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eightonethree/cafe-api/internal/adapters/events"
	"github.com/eightonethree/cafe-api/internal/adapters/httpapi"
	"github.com/eightonethree/cafe-api/internal/adapters/mailer"
	memactivitylog "github.com/eightonethree/cafe-api/internal/adapters/memory/activitylog"
	membookingrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/bookingrepo"
	memidempotency "github.com/eightonethree/cafe-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/paymentrepo"
	mempostrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/postrepo"
	memresetstate "github.com/eightonethree/cafe-api/internal/adapters/memory/resetstate"
	memsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/sessionrepo"
	memvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/memory/voucherrepo"
	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
	pgbookingrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/bookingrepo"
	pgidempotency "github.com/eightonethree/cafe-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/migrations"
	pgpaymentrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/paymentrepo"
	pgpostrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/postrepo"
	pgresetstate "github.com/eightonethree/cafe-api/internal/adapters/postgres/resetstate"
	pgsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/sessionrepo"
	pgvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/voucherrepo"
	redisactivitylog "github.com/eightonethree/cafe-api/internal/adapters/redis/activitylog"
	redisresetstate "github.com/eightonethree/cafe-api/internal/adapters/redis/resetstate"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/board"
	"github.com/eightonethree/cafe-api/internal/app/bookings"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/payments"
	"github.com/eightonethree/cafe-api/internal/app/reset"
	"github.com/eightonethree/cafe-api/internal/app/sessions"
	"github.com/eightonethree/cafe-api/internal/app/site"
	"github.com/eightonethree/cafe-api/internal/app/vouchers"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/auth/token"
	platformclock "github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/platform/config"
	"github.com/eightonethree/cafe-api/internal/platform/logging"
	activitylogport "github.com/eightonethree/cafe-api/internal/ports/out/activitylog"
	bookingrepoport "github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
	eventsport "github.com/eightonethree/cafe-api/internal/ports/out/events"
	idempotencyport "github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
	postrepoport "github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
	resetstateport "github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
	sessionrepoport "github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
	voucherrepoport "github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

// Redis keys shared by every instance.
const (
	redisActivityKey    = "813:activity"
	redisResetMarkerKey = "813:reset:marker"
	redisLockPrefix     = "813:reset"
)

type repos struct {
	members  memberrepoport.Repository
	vouchers voucherrepoport.Repository
	sessions sessionrepoport.Repository
	bookings bookingrepoport.Repository
	payments paymentrepoport.Repository
	posts    postrepoport.Repository
	marker   resetstateport.Store
	locker   resetstateport.Locker
	idem     idempotencyport.Store
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()
	cal := platformclock.NewCalendar(clk, cfg.Cafe.Location)

	var (
		rp       repos
		cleanups []func()
	)
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.Apply(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		rp = repos{
			members:  pgmemberrepo.NewRepo(pool),
			vouchers: pgvoucherrepo.NewRepo(pool),
			sessions: pgsessionrepo.NewRepo(pool),
			bookings: pgbookingrepo.NewRepo(pool),
			payments: pgpaymentrepo.NewRepo(pool),
			posts:    pgpostrepo.NewRepo(pool),
			marker:   pgresetstate.NewStore(pool),
			locker:   pgresetstate.NewLocker(pool),
			idem:     pgidempotency.NewStore(pool),
		}
	default:
		memberRepo := memmemberrepo.NewRepo()
		rp = repos{
			members:  memberRepo,
			vouchers: memvoucherrepo.NewRepo(),
			sessions: memsessionrepo.NewRepo(),
			bookings: membookingrepo.NewRepo(),
			payments: mempaymentrepo.NewRepo(memberRepo),
			posts:    mempostrepo.NewRepo(),
			marker:   memresetstate.NewStore(),
			locker:   memresetstate.NewLocker(),
			idem:     memidempotency.NewStore(),
		}
	}

	var actLog activitylogport.Log = memactivitylog.NewLog(cfg.Cafe.ActivityLogCap)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		cleanups = append(cleanups, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		actLog = redisactivitylog.NewLog(client, redisActivityKey, cfg.Cafe.ActivityLogCap)
		rp.marker = redisresetstate.NewStore(client, redisResetMarkerKey)
		rp.locker = redisresetstate.NewLocker(client, redisLockPrefix)
		logger.Info("redis enabled for activity log and reset coordination")
	}

	var pub eventsport.Publisher = events.NewLogPublisher(logger)
	if cfg.RabbitMQURL != "" {
		rmq, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		pub = events.NewBreakerPublisher(rmq, events.BreakerSettings{}, logger)
		logger.Info("publishing domain events to rabbitmq")
	}
	cleanups = append(cleanups, func() { _ = pub.Close() })

	var mail mailerport.Mailer = mailer.NewLogMailer(logger)
	if cfg.Mail.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	}

	content, err := site.LoadContent(cfg.SiteContentPath)
	if err != nil {
		return err
	}

	act := activity.NewService(actLog, pub, clk, logger)
	memberSvc := members.NewService(rp.members, clk, mail, act)
	resetSvc := reset.NewService(rp.sessions, rp.vouchers, rp.marker, rp.locker, cal, act, logger)
	resetSvc.LockTTL = cfg.Cafe.ResetLockTTL
	resetSvc.Keys = rp.idem

	deps := httpapi.Deps{
		Members:  memberSvc,
		Vouchers: vouchers.NewService(rp.vouchers, memberSvc, cal, act, cfg.Cafe.VoucherDiscountPercent),
		Sessions: sessions.NewService(rp.sessions, memberSvc, cal, act, sessions.Options{
			Capacity:                cfg.Cafe.SessionCapacity,
			RequirePaidSubscription: cfg.Cafe.RequirePaidSubscription,
		}),
		Bookings: bookings.NewService(rp.bookings, memberSvc, cal, act, bookings.Options{
			Capacity:   cfg.Cafe.SessionCapacity,
			WindowDays: cfg.Cafe.BookingWindowDays,
		}),
		Payments: payments.NewService(rp.payments, rp.members, cal, act),
		Board:    board.NewService(rp.posts, memberSvc, clk, act),
		Activity: act,
		Reset:    resetSvc,
		Site:     site.NewService(content, cfg.Cafe.Location, clk, mail, act),
		Idem:     rp.idem,
		Clock:    clk,
		Logger:   logger,
	}

	// Auth configuration:
	// - Production: require TOKEN_SECRET and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass token verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject, domain.Role(cfg.DevRole))
		logger.Warn("dev auth mode enabled; do not use in production")
	default:
		tokens := token.NewService(cfg.Token, clk)
		deps.Tokens = tokens
		authMW = httpapi.NewAuthMiddleware(tokens)
	}

	handler := httpapi.NewRouter(httpapi.NewServer(deps), httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := resetSvc.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
