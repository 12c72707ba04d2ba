package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// RelayProvider posts messages to a server-side email endpoint that holds
// the provider credentials.
type RelayProvider struct {
	url    string
	client *http.Client
}

// NewRelayProvider creates a relay provider. An empty url leaves it unavailable.
func NewRelayProvider(url string, timeout time.Duration) *RelayProvider {
	return &RelayProvider{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *RelayProvider) Name() string { return "relay" }

type relayRequest struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

type relayResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func (p *RelayProvider) Send(ctx context.Context, msg Message) (string, error) {
	if p.url == "" {
		return "", &Error{Provider: p.Name(), Kind: KindUnavailable, Message: "relay endpoint not configured"}
	}

	body, err := json.Marshal(relayRequest{To: msg.To, Subject: msg.Subject, HTMLContent: msg.HTML})
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindValidation, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindConfig, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Provider: p.Name(), Kind: KindProvider, Code: resp.StatusCode, Message: string(raw)}
	}

	var out relayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindProvider, Code: resp.StatusCode, Message: "unreadable response", Cause: err}
	}
	if !out.Success {
		return "", &Error{Provider: p.Name(), Kind: KindProvider, Code: resp.StatusCode, Message: out.Error}
	}
	return out.MessageID, nil
}
