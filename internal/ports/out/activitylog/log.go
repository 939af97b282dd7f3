package activitylog

import (
	"context"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Log is a capped, append-only activity list. Once the cap is reached the oldest
// entries are dropped.
type Log interface {
	Append(ctx context.Context, e domain.ActivityEntry) error

	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}
