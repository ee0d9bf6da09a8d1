package testutil

import (
	"context"
	"sync"

	"github.com/streamshare/streamshare/internal/notifier"
)

var _ notifier.Dispatcher = (*MockDispatcher)(nil)

// MockDispatcher records outbound messages instead of publishing them
type MockDispatcher struct {
	mu       sync.Mutex
	Emails   []notifier.EmailMessage
	WhatsApp []notifier.WhatsAppMessage
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (d *MockDispatcher) SendEmail(ctx context.Context, msg *notifier.EmailMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Emails = append(d.Emails, *msg)
	return nil
}

func (d *MockDispatcher) SendWhatsApp(ctx context.Context, msg *notifier.WhatsAppMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.WhatsApp = append(d.WhatsApp, *msg)
	return nil
}

// Sent returns how many messages were queued on any channel
func (d *MockDispatcher) Sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Emails) + len(d.WhatsApp)
}
