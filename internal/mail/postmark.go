package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkAPI is the subset of *postmark.Client used by PostmarkSender.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender sends mail through Postmark's transactional API.
type PostmarkSender struct {
	client postmarkAPI
	from   string
}

// NewPostmarkSender creates a Postmark-backed sender.
func NewPostmarkSender(serverToken, accountToken, from string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, errors.New("postmark server token is required")
	}
	if from == "" {
		return nil, errors.New("sender address is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

// Send implements Sender. Link tracking is limited to the HTML part.
func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.from,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: false,
		TrackLinks: "None",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
