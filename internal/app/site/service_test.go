package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memclock "github.com/eightonethree/cafe-api/internal/adapters/memory/clock"
	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
)

type captureMailer struct{ sent []mailerport.Message }

func (m *captureMailer) Send(ctx context.Context, msg mailerport.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestLoadContent_Embedded(t *testing.T) {
	t.Parallel()

	c, err := LoadContent("")
	require.NoError(t, err)
	require.NotEmpty(t, c.Name)
	require.NotEmpty(t, c.Menu)
	require.NotEmpty(t, c.Hours)
	require.Equal(t, "hello@813.cafe", c.Contact.Email)
}

func TestParseContent_RejectsBadHours(t *testing.T) {
	t.Parallel()

	_, err := ParseContent([]byte("hours:\n  - day: funday\n    open: \"08:00\"\n    close: \"10:00\"\n"))
	require.ErrorContains(t, err, "unknown day")
	_, err = ParseContent([]byte("hours:\n  - day: monday\n    open: \"18:00\"\n    close: \"08:00\"\n"))
	require.ErrorContains(t, err, "must be after")
	_, err = ParseContent([]byte("hours:\n  - day: monday\n    open: \"8am\"\n    close: \"18:00\"\n"))
	require.ErrorContains(t, err, "HH:MM")
}

func TestOpenNow_UsesCafeTimeZone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	c, err := LoadContent("")
	require.NoError(t, err)

	// Friday 2024-03-01.
	cases := []struct {
		utc  time.Time
		open bool
	}{
		{time.Date(2024, 3, 1, 6, 59, 0, 0, time.UTC), false}, // 07:59 local
		{time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC), true},   // 08:00 local
		{time.Date(2024, 3, 1, 18, 59, 0, 0, time.UTC), true}, // 19:59 local
		{time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC), false}, // 20:00 local
		{time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), false}, // Sunday
	}
	for _, tc := range cases {
		svc := NewService(c, loc, memclock.NewManualClock(tc.utc), nil, activity.Nop{})
		require.Equal(t, tc.open, svc.OpenNow(), "at %s", tc.utc)
	}
}

func TestSubmitContact(t *testing.T) {
	t.Parallel()

	c, err := LoadContent("")
	require.NoError(t, err)
	mailer := &captureMailer{}
	svc := NewService(c, time.UTC, memclock.NewManualClock(time.Now()), mailer, activity.Nop{})
	ctx := context.Background()

	err = svc.SubmitContact(ctx, ContactInput{Name: " ", Email: "nope", Message: ""})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Contains(t, ae.Details, "name")
	require.Contains(t, ae.Details, "email")
	require.Contains(t, ae.Details, "message")
	require.Empty(t, mailer.sent)

	require.NoError(t, svc.SubmitContact(ctx, ContactInput{Name: "Grace", Email: "grace@example.com", Message: "Do you host meetups?"}))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "hello@813.cafe", mailer.sent[0].ToEmail)
	require.Contains(t, mailer.sent[0].Body, "grace@example.com")
}
