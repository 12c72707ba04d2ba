package mail

import (
	"context"
	"strings"
)

// Message is a single transactional email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Validate checks the fields every provider needs.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return &Error{Kind: KindValidation, Message: "recipient is required"}
	case strings.TrimSpace(m.Subject) == "":
		return &Error{Kind: KindValidation, Message: "subject is required"}
	case strings.TrimSpace(m.HTML) == "" && strings.TrimSpace(m.Text) == "":
		return &Error{Kind: KindValidation, Message: "body is required"}
	}
	return nil
}

// Provider delivers messages through one mechanism. Send returns the
// provider's message id when it has one.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}
