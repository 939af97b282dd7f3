package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
	"github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
	"github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
	"github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

// LockName is the lock all instances contend for before resetting.
const LockName = "lock"

const (
	defaultLockTTL = 2 * time.Minute
	retryDelay     = time.Minute
	// midnightSlack keeps a timer that fires a little early from landing on the old day.
	midnightSlack = time.Second
)

// Outcome describes a single RunOnce call.
type Outcome struct {
	Ran bool
	// SkipReason is "already_done" or "locked" when Ran is false.
	SkipReason string

	Day            time.Time
	At             time.Time
	ClosedSessions int
	PurgedVouchers int
	PrunedKeys     int
}

// KeyPruner drops idempotency records that can no longer be replayed.
type KeyPruner interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Service struct {
	sessions sessionrepo.Repository
	vouchers voucherrepo.Repository
	marker   resetstate.Store
	locker   resetstate.Locker
	cal      clock.Calendar
	activity activity.Recorder
	logger   *zap.Logger

	LockTTL time.Duration
	// Keys, when set, is pruned of records older than idempotency.Retention on each run.
	Keys KeyPruner

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

func NewService(
	sessions sessionrepo.Repository,
	vouchers voucherrepo.Repository,
	marker resetstate.Store,
	locker resetstate.Locker,
	cal clock.Calendar,
	rec activity.Recorder,
	logger *zap.Logger,
) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		vouchers: vouchers,
		marker:   marker,
		locker:   locker,
		cal:      cal,
		activity: rec,
		logger:   logger,
		LockTTL:  defaultLockTTL,
		wait:     sleep,
	}
}

// RunOnce performs the daily reset for the current café day. Unless force is set, a day that
// already has a marker is skipped. Only one instance resets at a time; the loser skips.
func (s *Service) RunOnce(ctx context.Context, force bool) (Outcome, error) {
	today := s.cal.Today()
	out := Outcome{Day: today}

	if !force {
		done, err := s.doneFor(ctx, today)
		if err != nil {
			return out, err
		}
		if done {
			out.SkipReason = "already_done"
			return out, nil
		}
	}

	unlock, ok, err := s.locker.TryLock(ctx, LockName, s.LockTTL)
	if err != nil {
		return out, fmt.Errorf("acquire reset lock: %w", err)
	}
	if !ok {
		out.SkipReason = "locked"
		return out, nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release reset lock", zap.Error(err))
		}
	}()

	if !force {
		// Another instance may have finished between the first check and the lock.
		done, err := s.doneFor(ctx, today)
		if err != nil {
			return out, err
		}
		if done {
			out.SkipReason = "already_done"
			return out, nil
		}
	}

	now := s.cal.Now()
	out.At = now
	if out.ClosedSessions, err = s.sessions.CloseAllOpen(ctx, now); err != nil {
		return out, fmt.Errorf("close open sessions: %w", err)
	}
	if out.PurgedVouchers, err = s.vouchers.DeleteUnredeemedExpired(ctx, now); err != nil {
		return out, fmt.Errorf("purge vouchers: %w", err)
	}
	if s.Keys != nil {
		n, err := s.Keys.DeleteCreatedBefore(ctx, now.Add(-idempotency.Retention))
		if err != nil {
			s.logger.Warn("prune idempotency keys", zap.Error(err))
		}
		out.PrunedKeys = n
	}
	if err := s.marker.Put(ctx, resetstate.Marker{Day: today, At: now}); err != nil {
		return out, fmt.Errorf("write reset marker: %w", err)
	}
	out.Ran = true

	s.activity.Record(ctx, activity.Entry{
		Kind: "reset.completed",
		Message: fmt.Sprintf("Daily reset for %s: %d sessions closed, %d vouchers purged",
			domain.FormatDay(today), out.ClosedSessions, out.PurgedVouchers),
		Data: map[string]any{
			"day":            domain.FormatDay(today),
			"closedSessions": out.ClosedSessions,
			"purgedVouchers": out.PurgedVouchers,
			"prunedKeys":     out.PrunedKeys,
			"forced":         force,
		},
	})
	s.logger.Info("daily reset completed",
		zap.String("day", domain.FormatDay(today)),
		zap.Int("closed_sessions", out.ClosedSessions),
		zap.Int("purged_vouchers", out.PurgedVouchers),
		zap.Int("pruned_keys", out.PrunedKeys),
		zap.Bool("forced", force),
	)
	return out, nil
}

func (s *Service) doneFor(ctx context.Context, today time.Time) (bool, error) {
	m, ok, err := s.marker.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("read reset marker: %w", err)
	}
	return ok && !m.Day.Before(today), nil
}

// Run catches up on a missed reset, then resets at every café-local midnight until ctx is
// canceled. It returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("reset scheduler started", zap.String("tz", s.cal.Loc.String()))
	for {
		delay := s.cal.NextMidnight().Sub(s.cal.Now()) + midnightSlack

		out, err := s.RunOnce(ctx, false)
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logger.Error("daily reset failed", zap.Error(err))
			if delay > retryDelay {
				delay = retryDelay
			}
		case !out.Ran:
			s.logger.Debug("daily reset skipped", zap.String("reason", out.SkipReason))
		}

		if err := s.wait(ctx, delay); err != nil {
			s.logger.Info("reset scheduler stopped")
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
