package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayOfUsesCafeTimeZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("cafe", 2*60*60)
	// 23:30 UTC is already the next day at UTC+2.
	instant := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), DayOf(instant, loc))
	require.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), NextMidnight(instant, loc))
	require.Equal(t, "2024-03-11", FormatDay(DayOf(instant, loc)))
}
