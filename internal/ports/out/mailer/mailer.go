package mailer

import "context"

// Message is a plain-text notification mail.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}
