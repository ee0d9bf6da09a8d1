package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/httpclient"
	"github.com/streamshare/streamshare/internal/logger"
)

// Client sends text messages through the WhatsApp Cloud API
type Client struct {
	cfg        config.WhatsAppConfig
	httpClient httpclient.Client
	logger     *logger.Logger
}

func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return NewClientWithHTTP(cfg.WhatsApp, httpclient.NewDefaultClient(httpclient.ClientConfig{RetryMax: 2}), logger)
}

func NewClientWithHTTP(cfg config.WhatsAppConfig, httpClient httpclient.Client, logger *logger.Logger) *Client {
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

func (c *Client) IsEnabled() bool {
	return c.cfg.Enabled && c.cfg.AccessToken != "" && c.cfg.PhoneNumberID != ""
}

type textMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a text message to an E.164 phone number and returns the message id
func (c *Client) SendText(ctx context.Context, phone, body string) (string, error) {
	if !c.IsEnabled() {
		return "", ierr.NewError("whatsapp client is disabled").
			Mark(ierr.ErrInvalidOperation)
	}

	to := normalizePhone(phone)
	if to == "" {
		return "", ierr.NewError("invalid phone number").
			WithHintf("Phone number %q has no digits", phone).
			Mark(ierr.ErrValidation)
	}

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textPayload{Body: body},
	})
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.PhoneNumberID),
		Headers: map[string]string{
			"Authorization": "Bearer " + c.cfg.AccessToken,
		},
		Body: payload,
	})
	if err != nil {
		return "", err
	}

	var out sendResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", ierr.WithError(err).
			WithHint("Unexpected response from WhatsApp").
			Mark(ierr.ErrHTTPClient)
	}
	if len(out.Messages) == 0 {
		return "", ierr.NewError("whatsapp returned no message id").
			Mark(ierr.ErrHTTPClient)
	}

	c.logger.Debugw("whatsapp message sent", "message_id", out.Messages[0].ID)
	return out.Messages[0].ID, nil
}

// normalizePhone keeps only the digits of a phone number
func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
