package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/config"
)

func newService(clk *memclock.ManualClock, secret string) *Service {
	return NewService(config.TokenConfig{Issuer: "test-iss", Secret: secret, TTL: time.Hour}, clk)
}

func TestIssueThenVerify(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	svc := newService(clk, "s3cret")

	raw, exp, err := svc.Issue("member-1", domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, time.Unix(1700000000, 0).Add(time.Hour).UTC(), exp.UTC())

	p, err := svc.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, domain.MemberID("member-1"), p.MemberID)
	require.True(t, p.IsAdmin())
}

func TestVerify_RejectsExpired(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	svc := newService(clk, "s3cret")
	raw, _, err := svc.Issue("member-1", domain.RoleMember)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_RejectsWrongSecretAndGarbage(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	raw, _, err := newService(clk, "one").Issue("member-1", domain.RoleMember)
	require.NoError(t, err)

	_, err = newService(clk, "two").Verify(raw)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = newService(clk, "one").Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrUnauthorized)
}
