package clock

import (
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
)

// SystemClock returns the current wall-clock time.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Calendar answers café-day questions ("what day is it at the café?") against a Clock.
type Calendar struct {
	Clock clockport.Clock
	Loc   *time.Location
}

func NewCalendar(clk clockport.Clock, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Clock: clk, Loc: loc}
}

func (c Calendar) Now() time.Time { return c.Clock.Now() }

// Today returns the current café day.
func (c Calendar) Today() time.Time { return domain.DayOf(c.Clock.Now(), c.Loc) }

// NextMidnight returns the instant the next café day begins.
func (c Calendar) NextMidnight() time.Time { return domain.NextMidnight(c.Clock.Now(), c.Loc) }
