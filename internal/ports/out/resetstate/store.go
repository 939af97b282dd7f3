package resetstate

import (
	"context"
	"time"
)

// Marker records the last completed daily reset.
type Marker struct {
	// Day is the café day the reset was performed for.
	Day time.Time
	// At is the instant the reset ran.
	At time.Time
}

// Store persists the reset marker so a restarted process can tell whether today's
// reset already happened.
type Store interface {
	Get(ctx context.Context) (Marker, bool, error)
	Put(ctx context.Context, m Marker) error
}

// Locker guards the reset against concurrent runs across instances.
type Locker interface {
	// TryLock acquires the named lock for at most ttl. ok is false when another holder
	// owns it. unlock is safe to call once the work is done.
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
