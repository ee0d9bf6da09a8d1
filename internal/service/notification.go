package service

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/domain/notification"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/notifier"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/types"
)

// NotifyParams describes one in-app notification. A nil TargetUserID addresses the
// administrators of the account.
type NotifyParams struct {
	Type         types.NotificationType
	Title        string
	Description  string
	TargetUserID *string
	EntityID     string
}

// Notifier persists in-app notifications. It runs inside the caller's transaction.
type Notifier struct {
	repo   notification.Repository
	logger *logger.Logger
}

func NewNotifier(params ServiceParams) *Notifier {
	return &Notifier{repo: params.NotificationRepo, logger: params.Logger}
}

func (n *Notifier) Notify(ctx context.Context, accountID string, p NotifyParams) error {
	return n.repo.Create(ctx, &notification.Notification{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		AccountID:    accountID,
		Type:         p.Type,
		Title:        p.Title,
		Description:  p.Description,
		TargetUserID: p.TargetUserID,
		EntityID:     p.EntityID,
		CreatedAt:    time.Now().UTC(),
	})
}

// outboundMessage is an email and WhatsApp text sent to a participant after commit
type outboundMessage struct {
	participant *subscription.Participant
	subject     string
	body        string
}

// deliver queues the message on every channel the participant can be reached on.
// Failures are logged and never returned.
func deliver(ctx context.Context, dispatcher notifier.Dispatcher, log *logger.Logger, msgs ...outboundMessage) {
	for _, m := range msgs {
		if m.participant == nil {
			continue
		}

		if m.participant.Email != nil && *m.participant.Email != "" {
			err := dispatcher.SendEmail(ctx, &notifier.EmailMessage{
				To:      *m.participant.Email,
				Subject: m.subject,
				Body:    m.body,
			})
			if err != nil {
				log.Warnw("failed to queue email notification",
					"participant_id", m.participant.ID,
					"subject", m.subject,
					"error", err,
				)
			}
		}

		if m.participant.Phone != nil && *m.participant.Phone != "" {
			err := dispatcher.SendWhatsApp(ctx, &notifier.WhatsAppMessage{
				Phone: *m.participant.Phone,
				Body:  m.subject + "\n\n" + m.body,
			})
			if err != nil {
				log.Warnw("failed to queue whatsapp notification",
					"participant_id", m.participant.ID,
					"subject", m.subject,
					"error", err,
				)
			}
		}
	}
}

// discardProof removes a stored proof nothing points to anymore
func discardProof(ctx context.Context, store storage.Storage, log *logger.Logger, fileURL string) {
	if err := store.Delete(ctx, fileURL); err != nil {
		log.Warnw("failed to remove unused proof",
			"url", fileURL,
			"error", err,
		)
	}
}
