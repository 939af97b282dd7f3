// Package activitylog keeps the back-office activity log in a capped Redis list.
package activitylog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Log stores JSON entries newest first under a single key; LTRIM keeps it capped.
type Log struct {
	client *redis.Client
	key    string
	cap    int
}

func NewLog(client *redis.Client, key string, capacity int) *Log {
	if capacity <= 0 {
		capacity = domain.DefaultActivityLogCap
	}
	return &Log{client: client, key: key, cap: capacity}
}

func (l *Log) Append(ctx context.Context, e domain.ActivityEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, b)
	pipe.LTrim(ctx, l.key, 0, int64(l.cap-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (l *Log) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := l.client.LRange(ctx, l.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	out := make([]domain.ActivityEntry, 0, len(raw))
	for _, s := range raw {
		var e domain.ActivityEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			// Skip entries written by an incompatible version.
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
