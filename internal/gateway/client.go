package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/httpclient"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/types"
)

// Client talks to the gateway's JSON HTTP API
type Client struct {
	cfg        config.GatewayConfig
	httpClient httpclient.Client
	logger     *logger.Logger
}

func NewClient(cfg *config.Configuration, logger *logger.Logger) Gateway {
	return &Client{
		cfg: cfg.Gateway,
		httpClient: httpclient.NewDefaultClient(httpclient.ClientConfig{
			Timeout:  cfg.Gateway.Timeout,
			RetryMax: 2,
		}),
		logger: logger,
	}
}

// NewClientWithHTTP builds a client on a custom transport
func NewClientWithHTTP(cfg config.GatewayConfig, httpClient httpclient.Client, logger *logger.Logger) Gateway {
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

type createPixChargeBody struct {
	ExternalReference string `json:"external_reference"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	PayerEmail        string `json:"payer_email,omitempty"`
	DueDate           string `json:"due_date"`
}

type createPixChargeResponse struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	QRCodeImage string `json:"qr_code_image"`
	QRCodeText  string `json:"qr_code_text"`
	Error       string `json:"error"`
}

func (c *Client) CreatePixCharge(ctx context.Context, req *PixChargeRequest) (*PixChargeResult, error) {
	body, err := json.Marshal(createPixChargeBody{
		ExternalReference: req.IdempotencyKey,
		Title:             req.Title,
		Description:       req.Description,
		Amount:            req.Amount.StringFixed(2),
		PayerEmail:        req.PayerEmail,
		DueDate:           req.DueDate.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid PIX charge request").
			Mark(ierr.ErrValidation)
	}

	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.url("pix/charges"),
		Headers: c.headers(req.IdempotencyKey),
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	var out createPixChargeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment gateway returned an invalid response").
			Mark(ierr.ErrHTTPClient)
	}

	if !out.Success || out.ID == "" {
		return nil, ierr.NewErrorf("gateway rejected pix charge: %s", out.Error).
			WithHint("Payment gateway could not create the PIX charge").
			WithReportableDetails(map[string]any{
				"external_reference": req.IdempotencyKey,
				"gateway_error":      out.Error,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return &PixChargeResult{
		GatewayID:   out.ID,
		Provider:    c.cfg.Provider,
		QRCodeImage: out.QRCodeImage,
		QRCodeText:  out.QRCodeText,
	}, nil
}

func (c *Client) GetSubscriptionStatus(ctx context.Context, gatewaySubscriptionID string) (*SubscriptionStatusResult, error) {
	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.url("subscriptions/" + url.PathEscape(gatewaySubscriptionID)),
		Headers: c.headers(""),
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment gateway returned an invalid response").
			Mark(ierr.ErrHTTPClient)
	}

	return &SubscriptionStatusResult{
		Status: types.GatewaySubscriptionStatus(strings.ToLower(out.Status)),
	}, nil
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), path)
}

func (c *Client) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
	if idempotencyKey != "" {
		h["Idempotency-Key"] = idempotencyKey
	}
	return h
}
