package clock

import "time"

// Clock is the time source for services. Tests use memory/clock.ManualClock.
type Clock interface {
	// Now returns the current instant in UTC.
	Now() time.Time
}
