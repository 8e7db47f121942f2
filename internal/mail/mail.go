// Package mail delivers transactional email: the address verification
// message sent on signup and on request.
package mail

import (
	"context"
	"errors"
	"net/mail"
)

var (
	// ErrInvalidMessage is returned for messages without a valid recipient or subject.
	ErrInvalidMessage = errors.New("invalid mail message")
	// ErrSendFailed wraps provider failures.
	ErrSendFailed = errors.New("failed to send mail")
)

// Message is a single outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	// Tag groups messages in the provider's dashboard.
	Tag string
}

// Validate checks the recipient address and subject.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	if m.Subject == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject is required"))
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
