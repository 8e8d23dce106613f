package whatsapp

//go:generate go run go.uber.org/mock/mockgen -source=./whatsapp.go -destination=./mocks/whatsapp_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"roombook/config"
	"roombook/infras/otel"
	"roombook/shared/constant"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v20.0"

	defaultTimeoutSeconds = 20
	maxBodyRunes          = 4096
	messagingProduct      = "whatsapp"
	messageTypeText       = "text"
	messagesPath          = "/{phoneNumberID}/messages"
)

var ErrMissingCredentials = errors.New("whatsapp phone number id or token is not configured")

// Messenger sends a plain text message to a phone number.
type Messenger interface {
	Send(ctx context.Context, phone, text string) error
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type cloudMessenger struct {
	client        *resty.Client
	phoneNumberID string
	token         string
	otel          otel.Otel
}

func New(cfg *config.Config, ot otel.Otel) Messenger {
	baseURL := cfg.WhatsApp.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.WhatsApp.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader(constant.RequestHeaderContentType, constant.ContentTypeJSON)

	return &cloudMessenger{
		client:        client,
		phoneNumberID: cfg.WhatsApp.PhoneNumberID,
		token:         cfg.WhatsApp.Token,
		otel:          ot,
	}
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBodyRunes {
		return text
	}

	return string(runes[:maxBodyRunes])
}

// Send posts a text message through the WhatsApp Cloud API. Any HTTP status of
// 300 or above is returned as an error together with the response body.
func (m *cloudMessenger) Send(ctx context.Context, phone, text string) (err error) {
	ctx, scope := m.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".whatsapp.Send")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if m.phoneNumberID == "" || m.token == "" {
		return ErrMissingCredentials
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetAuthToken(m.token).
		SetPathParam("phoneNumberID", m.phoneNumberID).
		SetBody(sendRequest{
			MessagingProduct: messagingProduct,
			To:               strings.ReplaceAll(phone, " ", ""),
			Type:             messageTypeText,
			Text:             textBody{Body: truncate(text)},
		}).
		Post(messagesPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to call whatsapp cloud api")

		return fmt.Errorf("failed to call whatsapp cloud api: %w", err)
	}

	scope.SetAttribute("http.status_code", resp.StatusCode())

	if resp.StatusCode() >= 300 {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("whatsapp cloud api rejected message")

		return fmt.Errorf("whatsapp cloud api error %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
