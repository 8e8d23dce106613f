package whatsapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"roombook/config"
	"roombook/infras/otel/mocks"
	"roombook/infras/whatsapp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path          string
	authorization string
	body          map[string]any
}

func newServer(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.authorization = r.Header.Get("Authorization")

		_ = json.NewDecoder(r.Body).Decode(&got.body)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient"}}`))
	}))

	t.Cleanup(server.Close)

	return server
}

func newConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.WhatsApp.BaseURL = baseURL
	cfg.WhatsApp.PhoneNumberID = "1234"
	cfg.WhatsApp.Token = "secret"

	return cfg
}

func TestSend(t *testing.T) {
	got := &captured{}
	server := newServer(t, http.StatusOK, got)

	messenger := whatsapp.New(newConfig(server.URL), mocks.NewOtel())

	err := messenger.Send(context.Background(), "+1 787 555 1234", "Reminder: Town hall")
	require.NoError(t, err)

	assert.Equal(t, "/1234/messages", got.path)
	assert.Equal(t, "Bearer secret", got.authorization)
	assert.Equal(t, "whatsapp", got.body["messaging_product"])
	assert.Equal(t, "+17875551234", got.body["to"])
	assert.Equal(t, "text", got.body["type"])

	text, ok := got.body["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Reminder: Town hall", text["body"])
}

func TestSendTruncatesBody(t *testing.T) {
	got := &captured{}
	server := newServer(t, http.StatusOK, got)

	messenger := whatsapp.New(newConfig(server.URL), mocks.NewOtel())

	require.NoError(t, messenger.Send(context.Background(), "+17875551234", strings.Repeat("é", 5000)))

	text, ok := got.body["text"].(map[string]any)
	require.True(t, ok)

	body, ok := text["body"].(string)
	require.True(t, ok)
	assert.Equal(t, 4096, utf8.RuneCountInString(body))
}

func TestSendRejectedStatus(t *testing.T) {
	got := &captured{}
	server := newServer(t, http.StatusBadRequest, got)

	messenger := whatsapp.New(newConfig(server.URL), mocks.NewOtel())

	err := messenger.Send(context.Background(), "+17875551234", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSendMissingCredentials(t *testing.T) {
	cfg := &config.Config{}

	messenger := whatsapp.New(cfg, mocks.NewOtel())

	err := messenger.Send(context.Background(), "+17875551234", "hello")

	assert.ErrorIs(t, err, whatsapp.ErrMissingCredentials)
}
