package idempotency

import (
	"context"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
)

// Retention is how long a stored response stays replayable. The nightly reset deletes
// older records.
const Retention = 24 * time.Hour

// Key is the Idempotency-Key header value.
type Key string

// Fingerprint scopes a key to one caller and one route. An empty BodyHash addresses the
// meta record holding the hash of the first payload seen for the key.
type Fingerprint struct {
	Key      Key
	Subject  domain.MemberID
	Method   string
	Route    string
	BodyHash string
}

// Record is a stored response (or, for meta records, the payload hash in Body).
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	// Put inserts or overwrites the record for fp.
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// DeleteCreatedBefore removes records created before cutoff and reports how many.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
