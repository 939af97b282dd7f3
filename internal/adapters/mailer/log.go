package mailer

import (
	"context"

	"go.uber.org/zap"

	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
)

// LogMailer writes messages to the log. Development and tests use it in place of SendGrid.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg mailerport.Message) error {
	_ = ctx
	m.logger.Info("mail",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
