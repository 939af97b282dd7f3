package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	eventsport "github.com/eightonethree/cafe-api/internal/ports/out/events"
)

type flakyPublisher struct {
	calls atomic.Int32
	err   error
}

func (f *flakyPublisher) Publish(ctx context.Context, e eventsport.Event) error {
	f.calls.Add(1)
	return f.err
}

func (f *flakyPublisher) Close() error { return nil }

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	next := &flakyPublisher{err: errors.New("broker down")}
	p := NewBreakerPublisher(next, BreakerSettings{FailureThreshold: 2, Timeout: time.Hour}, nil)
	ev := eventsport.Event{Type: "voucher.redeemed", OccurredAt: time.Unix(0, 0)}

	require.ErrorContains(t, p.Publish(context.Background(), ev), "broker down")
	require.ErrorContains(t, p.Publish(context.Background(), ev), "broker down")

	err := p.Publish(context.Background(), ev)
	require.ErrorIs(t, err, ErrPublisherUnavailable)
	require.Equal(t, int32(2), next.calls.Load())
}

func TestBreakerPublisher_PassesThroughSuccess(t *testing.T) {
	t.Parallel()

	next := &flakyPublisher{}
	p := NewBreakerPublisher(next, BreakerSettings{}, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Publish(context.Background(), eventsport.Event{Type: "session.checked_in"}))
	}
	require.Equal(t, int32(10), next.calls.Load())
}
