package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoProviderSendsTransactionalEmail(t *testing.T) {
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@brevo>"}`))
	}))
	defer srv.Close()

	p := NewBrevoProvider("secret-key", srv.URL, Sender{Name: "Charmntreats", Email: "orders@charmntreats.com"}, time.Second)
	id, err := p.Send(context.Background(), Message{To: "a@example.com", ToName: "A", Subject: "Hi", HTML: "<b>x</b>", Text: "x"})

	require.NoError(t, err)
	assert.Equal(t, "<abc@brevo>", id)
	assert.Equal(t, "orders@charmntreats.com", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "a@example.com", got.To[0].Email)
	assert.Equal(t, "Hi", got.Subject)
	assert.Equal(t, "<b>x</b>", got.HTMLContent)
	assert.Equal(t, "x", got.TextContent)
}

func TestBrevoProviderErrors(t *testing.T) {
	_, err := NewBrevoProvider("", "", Sender{}, time.Second).Send(context.Background(), testMessage)
	assert.Equal(t, KindConfig, KindOf(err))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	_, err = NewBrevoProvider("bad", srv.URL, Sender{}, time.Second).Send(context.Background(), testMessage)
	var mailErr *Error
	require.ErrorAs(t, err, &mailErr)
	assert.Equal(t, KindProvider, mailErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, mailErr.Code)
}

func TestRelayProvider(t *testing.T) {
	_, err := NewRelayProvider("", time.Second).Send(context.Background(), testMessage)
	assert.Equal(t, KindUnavailable, KindOf(err))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req relayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.To == "fail@example.com" {
			_, _ = w.Write([]byte(`{"success":false,"error":"rejected"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"messageId":"relay-1"}`))
	}))
	defer srv.Close()

	p := NewRelayProvider(srv.URL, time.Second)
	id, err := p.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, "relay-1", id)

	_, err = p.Send(context.Background(), Message{To: "fail@example.com", Subject: "s", HTML: "h"})
	assert.Equal(t, KindProvider, KindOf(err))
}

func TestRelayProviderNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRelayProvider(url, time.Second).Send(context.Background(), testMessage)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestSMTPProviderUnconfiguredIsUnavailable(t *testing.T) {
	_, err := NewSMTPProvider(SMTPConfig{}).Send(context.Background(), testMessage)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestSMTPProviderBuildsMessage(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "shop@example.com", Password: "pw"})

	var addr string
	var raw string
	p.sendMail = func(a string, _ smtp.Auth, from string, to []string, msg []byte) error {
		addr = a
		raw = string(msg)
		assert.Equal(t, "shop@example.com", from)
		assert.Equal(t, []string{"buyer@example.com"}, to)
		return nil
	}

	_, err := p.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.True(t, strings.Contains(raw, "Subject: Hello\r\n"))
	assert.True(t, strings.Contains(raw, "Content-Type: text/html"))
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>hi</p>"))
}
