package sessionrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

func TestRepo_CapacityOfThirteen(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	now := time.Unix(100, 0).UTC()

	for i := 0; i < domain.DefaultSessionCapacity; i++ {
		s := domain.Session{
			ID:          domain.SessionID(string(rune('a' + i))),
			MemberID:    domain.MemberID(string(rune('A' + i))),
			CheckedInAt: now,
		}
		if err := r.Open(ctx, s, domain.DefaultSessionCapacity); err != nil {
			t.Fatalf("Open(%d) err=%v", i, err)
		}
	}
	err := r.Open(ctx, domain.Session{ID: "late", MemberID: "late", CheckedInAt: now}, domain.DefaultSessionCapacity)
	if !errors.Is(err, sessionrepo.ErrCapacityReached) {
		t.Fatalf("Open(14th) err=%v, want %v", err, sessionrepo.ErrCapacityReached)
	}

	if _, err := r.Close(ctx, "A", now.Add(time.Minute)); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
	if err := r.Open(ctx, domain.Session{ID: "late", MemberID: "late", CheckedInAt: now}, domain.DefaultSessionCapacity); err != nil {
		t.Fatalf("Open() after a seat freed err=%v", err)
	}
}
