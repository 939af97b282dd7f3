package resetstate

import (
	"context"
	"testing"
	"time"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	resetstateport "github.com/eightonethree/cafe-api/internal/ports/out/resetstate"
)

func TestContract_ResetStore(t *testing.T) {
	contracttest.RunResetStore(t, func(t *testing.T) (resetstateport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}

func TestContract_ResetLocker(t *testing.T) {
	contracttest.RunResetLocker(t, func(t *testing.T) (resetstateport.Locker, func()) {
		t.Helper()
		return NewLocker(), nil
	})
}

func TestLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	l := NewLocker()
	l.now = func() time.Time { return now }

	staleUnlock, ok, err := l.TryLock(context.Background(), "reset", time.Second)
	if err != nil || !ok {
		t.Fatalf("TryLock() ok=%v err=%v", ok, err)
	}

	now = now.Add(2 * time.Second)
	unlock, ok, err := l.TryLock(context.Background(), "reset", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock() after expiry ok=%v err=%v, want true", ok, err)
	}

	// The stale holder must not release the new lease.
	_ = staleUnlock(context.Background())
	if _, ok, _ := l.TryLock(context.Background(), "reset", time.Minute); ok {
		t.Fatalf("TryLock() succeeded while new lease held")
	}
	_ = unlock(context.Background())
}
