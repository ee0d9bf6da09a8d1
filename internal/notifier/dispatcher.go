package notifier

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/pubsub"
	"github.com/streamshare/streamshare/internal/types"
)

// Dispatcher delivers out-of-band notifications. Delivery is best effort and never
// takes part in a database transaction.
type Dispatcher interface {
	SendEmail(ctx context.Context, msg *EmailMessage) error
	SendWhatsApp(ctx context.Context, msg *WhatsAppMessage) error
}

type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WhatsAppMessage struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

// Envelope is the payload published on the notification topic
type Envelope struct {
	Channel  types.OutboundChannel `json:"channel"`
	Email    *EmailMessage         `json:"email,omitempty"`
	WhatsApp *WhatsAppMessage      `json:"whatsapp,omitempty"`
}

// pubSubDispatcher hands messages to the consumer through the configured pubsub backend
type pubSubDispatcher struct {
	publisher pubsub.Publisher
	topic     string
	logger    *logger.Logger
}

func NewDispatcher(cfg *config.Configuration, publisher pubsub.Publisher, logger *logger.Logger) Dispatcher {
	return &pubSubDispatcher{
		publisher: publisher,
		topic:     cfg.PubSub.NotificationTopic,
		logger:    logger,
	}
}

func (d *pubSubDispatcher) SendEmail(ctx context.Context, msg *EmailMessage) error {
	if msg == nil || msg.To == "" {
		return ierr.NewError("email recipient is required").
			Mark(ierr.ErrValidation)
	}
	return d.publish(ctx, &Envelope{Channel: types.OutboundChannelEmail, Email: msg})
}

func (d *pubSubDispatcher) SendWhatsApp(ctx context.Context, msg *WhatsAppMessage) error {
	if msg == nil || msg.Phone == "" {
		return ierr.NewError("whatsapp phone is required").
			Mark(ierr.ErrValidation)
	}
	return d.publish(ctx, &Envelope{Channel: types.OutboundChannelWhatsApp, WhatsApp: msg})
}

func (d *pubSubDispatcher) publish(ctx context.Context, env *Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not encode notification").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("channel", string(env.Channel))
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}
	if userID := types.GetUserID(ctx); userID != "" {
		msg.Metadata.Set("user_id", userID)
	}
	if accountID := types.GetAccountID(ctx); accountID != "" {
		msg.Metadata.Set("account_id", accountID)
	}

	if err := d.publisher.Publish(ctx, d.topic, msg); err != nil {
		d.logger.Errorw("failed to publish notification",
			"channel", env.Channel,
			"topic", d.topic,
			"error", err,
		)
		return ierr.WithError(err).
			WithHint("Could not queue notification").
			Mark(ierr.ErrSystem)
	}
	return nil
}
