package activitylog

import (
	"context"
	"sync"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Log is an in-memory ring buffer holding at most cap entries.
type Log struct {
	mu      sync.Mutex
	cap     int
	entries []domain.ActivityEntry // oldest first
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = domain.DefaultActivityLogCap
	}
	return &Log{cap: capacity}
}

func (l *Log) Append(ctx context.Context, e domain.ActivityEntry) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.cap; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return nil
}

func (l *Log) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ActivityEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}
