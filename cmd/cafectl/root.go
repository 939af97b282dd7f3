package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eightonethree/cafe-api/internal/adapters/events"
	"github.com/eightonethree/cafe-api/internal/adapters/mailer"
	memactivitylog "github.com/eightonethree/cafe-api/internal/adapters/memory/activitylog"
	postgres "github.com/eightonethree/cafe-api/internal/adapters/postgres"
	pgidempotency "github.com/eightonethree/cafe-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/migrations"
	pgresetstate "github.com/eightonethree/cafe-api/internal/adapters/postgres/resetstate"
	pgsessionrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/sessionrepo"
	pgvoucherrepo "github.com/eightonethree/cafe-api/internal/adapters/postgres/voucherrepo"
	redisactivitylog "github.com/eightonethree/cafe-api/internal/adapters/redis/activitylog"
	redisresetstate "github.com/eightonethree/cafe-api/internal/adapters/redis/resetstate"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/app/reset"
	"github.com/eightonethree/cafe-api/internal/app/vouchers"
	platformclock "github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/platform/config"
	"github.com/eightonethree/cafe-api/internal/platform/logging"
	activitylogport "github.com/eightonethree/cafe-api/internal/ports/out/activitylog"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
	resetstateport "github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

const (
	redisActivityKey    = "813:activity"
	redisResetMarkerKey = "813:reset:marker"
	redisLockPrefix     = "813:reset"
)

// app is the wiring shared by subcommands. It is built lazily so that commands which
// need no database (token mint) work without one.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	members *members.Service
	vouch   *vouchers.Service
	reset   *reset.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cafectl",
		Short:         "Operator tools for the 813 café backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.AddCommand(
		newAdminCmd(a),
		newMemberCmd(a),
		newResetCmd(a),
		newVoucherCmd(a),
		newTokenCmd(a),
	)
	return root
}

// open connects to Postgres (and Redis when configured) and builds the services.
func (a *app) open(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool
	if err := migrations.Apply(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var (
		actLog activitylogport.Log   = memactivitylog.NewLog(a.cfg.Cafe.ActivityLogCap)
		marker resetstateport.Store  = pgresetstate.NewStore(pool)
		locker resetstateport.Locker = pgresetstate.NewLocker(pool)
	)
	if a.cfg.RedisURL != "" {
		opt, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opt)
		actLog = redisactivitylog.NewLog(a.redis, redisActivityKey, a.cfg.Cafe.ActivityLogCap)
		marker = redisresetstate.NewStore(a.redis, redisResetMarkerKey)
		locker = redisresetstate.NewLocker(a.redis, redisLockPrefix)
	}

	var mail mailerport.Mailer = mailer.NewLogMailer(a.logger)
	if a.cfg.Mail.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(a.cfg.Mail.SendGridAPIKey, a.cfg.Mail.FromName, a.cfg.Mail.FromEmail)
	}

	clk := platformclock.NewSystemClock()
	cal := platformclock.NewCalendar(clk, a.cfg.Cafe.Location)
	act := activity.NewService(actLog, events.NewLogPublisher(a.logger), clk, a.logger)

	memberRepo := pgmemberrepo.NewRepo(pool)
	sessionRepo := pgsessionrepo.NewRepo(pool)
	voucherRepo := pgvoucherrepo.NewRepo(pool)

	a.members = members.NewService(memberRepo, clk, mail, act)
	a.vouch = vouchers.NewService(voucherRepo, a.members, cal, act, a.cfg.Cafe.VoucherDiscountPercent)
	a.reset = reset.NewService(sessionRepo, voucherRepo, marker, locker, cal, act, a.logger)
	a.reset.LockTTL = a.cfg.Cafe.ResetLockTTL
	a.reset.Keys = pgidempotency.NewStore(pool)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
