package domain

import "time"

// BoardPost is a message on the community board.
type BoardPost struct {
	ID       PostID
	AuthorID MemberID

	// AuthorName is a read-model field filled from the member directory.
	AuthorName string

	Title string
	Body  string

	CreatedAt time.Time
	DeletedAt *time.Time
}
