package resetstate

import (
	"context"
	"sync"
	"time"

	"github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

// Store keeps the reset marker in process memory. A restart loses it, so the
// scheduler will run a catch-up reset on boot.
type Store struct {
	mu     sync.RWMutex
	marker resetstate.Marker
	ok     bool
}

func NewStore() *Store { return &Store{} }

func (s *Store) Get(ctx context.Context) (resetstate.Marker, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marker, s.ok, nil
}

func (s *Store) Put(ctx context.Context, m resetstate.Marker) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = m
	s.ok = true
	return nil
}

// Locker is a process-local resetstate.Locker. Expiry is honored so a holder that
// never unlocks does not wedge the scheduler.
type Locker struct {
	mu    sync.Mutex
	now   func() time.Time
	held  map[string]lease
	token uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewLocker() *Locker {
	return &Locker{now: time.Now, held: make(map[string]lease)}
}

func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[name]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	l.token++
	tok := l.token
	l.held[name] = lease{token: tok, expires: now.Add(ttl)}

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[name]; ok && cur.token == tok {
			delete(l.held, name)
		}
		return nil
	}
	return unlock, true, nil
}
