// Package activity records back-office activity and fans it out as domain events.
package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eightonethree/cafe-api/internal/domain"
	activitylogport "github.com/eightonethree/cafe-api/internal/ports/out/activitylog"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
	eventsport "github.com/eightonethree/cafe-api/internal/ports/out/events"
)

// Entry is what callers record. Data travels with the event only; the log keeps Message.
type Entry struct {
	Kind     string
	MemberID *domain.MemberID
	Message  string
	Data     map[string]any
}

// Recorder is the dependency other services take. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

type Service struct {
	log    activitylogport.Log
	pub    eventsport.Publisher
	clk    clockport.Clock
	logger *zap.Logger

	// MaxLimit bounds Recent.
	MaxLimit int
}

func NewService(log activitylogport.Log, pub eventsport.Publisher, clk clockport.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		log:      log,
		pub:      pub,
		clk:      clk,
		logger:   logger,
		MaxLimit: domain.DefaultActivityLogCap,
	}
}

func (s *Service) Record(ctx context.Context, e Entry) {
	now := s.clk.Now()
	entry := domain.ActivityEntry{
		At:       now,
		Kind:     e.Kind,
		MemberID: e.MemberID,
		Message:  e.Message,
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", zap.String("kind", e.Kind), zap.Error(err))
	}
	if s.pub == nil {
		return
	}

	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.MemberID != nil {
		data["memberId"] = string(*e.MemberID)
	}
	// Publishing must not hold up the request once the caller's context ends.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(pubCtx, eventsport.Event{Type: e.Kind, OccurredAt: now, Data: data}); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", e.Kind), zap.Error(err))
	}
}

// Recent returns the newest entries first. limit <= 0 or above MaxLimit is clamped.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 || limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return s.log.Recent(ctx, limit)
}
