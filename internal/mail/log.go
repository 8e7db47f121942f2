package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
// It stands in for Postmark in development.
type LogSender struct {
	Log *zap.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.Log.Info("mail not delivered, logging instead",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.String("body", msg.HTMLBody),
	)
	return nil
}
