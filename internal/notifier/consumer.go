package notifier

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/email"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/pubsub"
	"github.com/streamshare/streamshare/internal/pubsub/router"
	"github.com/streamshare/streamshare/internal/sentry"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/streamshare/streamshare/internal/whatsapp"
)

// EmailSender sends one plain text email
type EmailSender interface {
	SendEmail(ctx context.Context, req email.SendEmailRequest) (*email.SendEmailResponse, error)
}

// WhatsAppSender sends one text message
type WhatsAppSender interface {
	SendText(ctx context.Context, phone, body string) (string, error)
}

// Consumer delivers queued notifications through email and WhatsApp
type Consumer struct {
	subscriber pubsub.Subscriber
	email      EmailSender
	whatsapp   WhatsAppSender
	sentry     *sentry.Service
	logger     *logger.Logger
	topic      string
}

func NewConsumer(
	cfg *config.Configuration,
	subscriber pubsub.Subscriber,
	emailSvc *email.Email,
	whatsappClient *whatsapp.Client,
	sentry *sentry.Service,
	logger *logger.Logger,
) *Consumer {
	return NewConsumerWithSenders(cfg, subscriber, emailSvc, whatsappClient, sentry, logger)
}

func NewConsumerWithSenders(
	cfg *config.Configuration,
	subscriber pubsub.Subscriber,
	emailSender EmailSender,
	whatsappSender WhatsAppSender,
	sentry *sentry.Service,
	logger *logger.Logger,
) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		email:      emailSender,
		whatsapp:   whatsappSender,
		sentry:     sentry,
		logger:     logger,
		topic:      cfg.PubSub.NotificationTopic,
	}
}

// RegisterHandler attaches the consumer to the router
func (c *Consumer) RegisterHandler(r *router.Router) {
	r.AddNoPublishHandler("notification_delivery", c.topic, c.subscriber, c.Handle)
}

// Handle delivers one envelope. Malformed payloads are dropped.
func (c *Consumer) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if requestID := msg.Metadata.Get("request_id"); requestID != "" {
		ctx = types.SetRequestID(ctx, requestID)
	}

	span, ctx := c.sentry.StartConsumerSpan(ctx, c.topic)
	if span != nil {
		defer span.Finish()
	}

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		c.logger.Errorw("dropping malformed notification",
			"message_uuid", msg.UUID,
			"error", err,
		)
		return nil
	}

	switch env.Channel {
	case types.OutboundChannelEmail:
		if env.Email == nil {
			return nil
		}
		_, err := c.email.SendEmail(ctx, email.SendEmailRequest{
			ToAddress: env.Email.To,
			Subject:   env.Email.Subject,
			Text:      env.Email.Body,
		})
		return err
	case types.OutboundChannelWhatsApp:
		if env.WhatsApp == nil {
			return nil
		}
		_, err := c.whatsapp.SendText(ctx, env.WhatsApp.Phone, env.WhatsApp.Body)
		return err
	default:
		return ierr.NewErrorf("unknown notification channel %q", env.Channel).
			Mark(ierr.ErrValidation)
	}
}
