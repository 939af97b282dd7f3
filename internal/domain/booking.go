package domain

import "time"

// Booking reserves a seat for a café day.
type Booking struct {
	ID       BookingID
	MemberID MemberID
	Date     time.Time

	CreatedAt  time.Time
	CanceledAt *time.Time
}

func (b Booking) IsActive() bool { return b.CanceledAt == nil }
