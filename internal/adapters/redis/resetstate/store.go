// Package resetstate stores the daily reset marker and lock in Redis so several API
// instances agree on whether today's reset ran.
package resetstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

type Store struct {
	client *redis.Client
	key    string
}

func NewStore(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

type markerJSON struct {
	Day string    `json:"day"`
	At  time.Time `json:"at"`
}

func (s *Store) Get(ctx context.Context) (resetstate.Marker, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return resetstate.Marker{}, false, nil
	}
	if err != nil {
		return resetstate.Marker{}, false, fmt.Errorf("read reset marker: %w", err)
	}
	var m markerJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return resetstate.Marker{}, false, fmt.Errorf("decode reset marker: %w", err)
	}
	day, err := time.Parse("2006-01-02", m.Day)
	if err != nil {
		return resetstate.Marker{}, false, fmt.Errorf("decode reset marker day: %w", err)
	}
	return resetstate.Marker{Day: day, At: m.At.UTC()}, true, nil
}

func (s *Store) Put(ctx context.Context, m resetstate.Marker) error {
	b, err := json.Marshal(markerJSON{Day: m.Day.UTC().Format("2006-01-02"), At: m.At.UTC()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("write reset marker: %w", err)
	}
	return nil
}

// Locker implements resetstate.Locker with SET NX PX and a token-checked release.
type Locker struct {
	client *redis.Client
	prefix string
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := l.prefix + ":" + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return unlock, true, nil
}
