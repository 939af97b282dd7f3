package domain

import "time"

// DefaultSessionCapacity is the number of seats in the coworking space.
const DefaultSessionCapacity = 13

// Session is one check-in/check-out interval of a member's physical presence.
type Session struct {
	ID       SessionID
	MemberID MemberID

	CheckedInAt  time.Time
	CheckedOutAt *time.Time

	// AutoClosed is set when the daily reset checked the member out.
	AutoClosed bool
}

func (s Session) IsOpen() bool { return s.CheckedOutAt == nil }

type Occupancy struct {
	Occupied  int
	Capacity  int
	Available int
}

func NewOccupancy(occupied, capacity int) Occupancy {
	avail := capacity - occupied
	if avail < 0 {
		avail = 0
	}
	return Occupancy{Occupied: occupied, Capacity: capacity, Available: avail}
}
