package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// DefaultBrevoURL is the Brevo transactional email endpoint.
const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

// Sender identifies the From address used with Brevo.
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BrevoProvider calls the Brevo transactional email API directly.
type BrevoProvider struct {
	apiKey string
	url    string
	sender Sender
	client *http.Client
}

// NewBrevoProvider creates a Brevo provider. The key must come from server
// configuration; without it the provider reports a config error.
func NewBrevoProvider(apiKey, url string, sender Sender, timeout time.Duration) *BrevoProvider {
	if url == "" {
		url = DefaultBrevoURL
	}
	return &BrevoProvider{
		apiKey: apiKey,
		url:    url,
		sender: sender,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *BrevoProvider) Name() string { return "brevo" }

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      Sender           `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent,omitempty"`
	TextContent string           `json:"textContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

func (p *BrevoProvider) Send(ctx context.Context, msg Message) (string, error) {
	if p.apiKey == "" {
		return "", &Error{Provider: p.Name(), Kind: KindConfig, Message: "BREVO_API_KEY is not configured"}
	}

	payload := brevoRequest{
		Sender:      p.sender,
		To:          []brevoRecipient{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindValidation, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindConfig, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Provider: p.Name(), Kind: KindProvider, Code: resp.StatusCode, Message: string(raw)}
	}

	var out brevoResponse
	_ = json.Unmarshal(raw, &out)
	return out.MessageID, nil
}
