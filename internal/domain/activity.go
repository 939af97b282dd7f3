package domain

import "time"

// ActivityEntry is one line of the back-office activity log.
type ActivityEntry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	MemberID *MemberID `json:"memberId,omitempty"`
	Message  string    `json:"message"`
}

// DefaultActivityLogCap bounds the number of entries kept.
const DefaultActivityLogCap = 200
