package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds the alternative provider's server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPProvider is the last resort. Without a host it always reports
// itself unavailable.
type SMTPProvider struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPProvider creates the alternative provider.
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, sendMail: smtp.SendMail}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	if p.cfg.Host == "" {
		return "", &Error{Provider: p.Name(), Kind: KindUnavailable, Message: "alternative provider not configured"}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindNetwork, Message: "context done", Cause: err}
	}

	from := p.cfg.From
	if from == "" {
		from = p.cfg.User
	}

	contentType := "text/html"
	body := msg.HTML
	if body == "" {
		contentType = "text/plain"
		body = msg.Text
	}

	// Header lines must be separated by CRLF with a blank line before the body.
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", msg.Subject),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"", contentType),
		"",
		body,
	}

	var auth smtp.Auth
	if p.cfg.User != "" {
		auth = smtp.PlainAuth("", p.cfg.User, p.cfg.Password, p.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	if err := p.sendMail(addr, auth, from, []string{msg.To}, []byte(strings.Join(headers, "\r\n"))); err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindNetwork, Message: "smtp delivery failed", Cause: err}
	}
	return "", nil
}
