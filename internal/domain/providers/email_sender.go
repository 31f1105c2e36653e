package providers

import "context"

// EmailMessage is one outbound HTML email
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// EmailSender delivers email and returns the provider message id
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}
