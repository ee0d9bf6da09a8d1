package whatsapp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/httpclient"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHTTP struct {
	req  *httpclient.Request
	resp *httpclient.Response
	err  error
}

func (s *stubHTTP) Send(_ context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	s.req = req
	return s.resp, s.err
}

func enabledConfig() config.WhatsAppConfig {
	return config.WhatsAppConfig{
		Enabled:       true,
		BaseURL:       "https://graph.example.com/v19.0/",
		PhoneNumberID: "12345",
		AccessToken:   "token",
	}
}

func TestSendText(t *testing.T) {
	stub := &stubHTTP{resp: &httpclient.Response{StatusCode: 200, Body: []byte(`{"messages":[{"id":"wamid.abc"}]}`)}}
	client := NewClientWithHTTP(enabledConfig(), stub, logger.NewNoopLogger())

	id, err := client.SendText(context.Background(), "+55 (11) 99999-0000", "Olá")
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", id)
	assert.Equal(t, "https://graph.example.com/v19.0/12345/messages", stub.req.URL)
	assert.Equal(t, "Bearer token", stub.req.Headers["Authorization"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(stub.req.Body, &body))
	assert.Equal(t, "5511999990000", body["to"])
	assert.Equal(t, "whatsapp", body["messaging_product"])
}

func TestSendTextDisabled(t *testing.T) {
	client := NewClientWithHTTP(config.WhatsAppConfig{}, &stubHTTP{}, logger.NewNoopLogger())
	_, err := client.SendText(context.Background(), "5511999990000", "Olá")
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestSendTextEmptyResponse(t *testing.T) {
	stub := &stubHTTP{resp: &httpclient.Response{StatusCode: 200, Body: []byte(`{"messages":[]}`)}}
	client := NewClientWithHTTP(enabledConfig(), stub, logger.NewNoopLogger())
	_, err := client.SendText(context.Background(), "5511999990000", "Olá")
	assert.True(t, ierr.IsHTTPClient(err))
}
