package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/domain/batch"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/types"
)

// BatchService handles grouped payments ("lotes") of several charges of one participant
type BatchService interface {
	CreateBatch(ctx context.Context, actor types.Actor, req dto.CreateBatchRequest) (*dto.BatchResponse, error)
	GetBatch(ctx context.Context, actor types.Actor, batchID string) (*dto.BatchResponse, error)
	ConfirmBatch(ctx context.Context, actor types.Actor, batchID string, file *storage.File) (*dto.BatchResponse, error)
	ApproveBatch(ctx context.Context, actor types.Actor, batchID string) (*dto.BatchResponse, error)
	RejectBatch(ctx context.Context, actor types.Actor, batchID string, reason string) (*dto.BatchResponse, error)
	CancelBatch(ctx context.Context, actor types.Actor, batchID string, reason string) (*dto.BatchResponse, error)
}

type batchService struct {
	ServiceParams
	activation ActivationService
	notifier   *Notifier
}

func NewBatchService(params ServiceParams) BatchService {
	return newBatchService(params)
}

func newBatchService(params ServiceParams) *batchService {
	return &batchService{
		ServiceParams: params,
		activation:    NewActivationService(params),
		notifier:      NewNotifier(params),
	}
}

func (s *batchService) CreateBatch(ctx context.Context, actor types.Actor, req dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	found, err := s.ChargeRepo.List(ctx, &types.ChargeFilter{IDs: req.ChargeIDs})
	if err != nil {
		return nil, err
	}

	// ownership is checked on every found charge before eligibility is reported
	participants := make(map[string]*subscription.Participant)
	for _, participantID := range lo.Uniq(lo.Map(found, func(c *charge.Charge, _ int) string { return c.ParticipantID })) {
		participant, err := s.SubRepo.GetParticipant(ctx, participantID)
		if err != nil {
			return nil, err
		}
		if !canActOn(actor, participant, participant.AccountID) {
			return nil, errPermissionDenied("create a batch for these charges")
		}
		participants[participantID] = participant
	}

	eligible := lo.Filter(found, func(c *charge.Charge, _ int) bool { return c.EligibleForBatch() })
	if len(eligible) != len(req.ChargeIDs) {
		eligibleIDs := lo.Map(eligible, func(c *charge.Charge, _ int) string { return c.ID })
		ineligible := lo.Without(req.ChargeIDs, eligibleIDs...)
		return nil, ierr.NewErrorf("%d of %d charges cannot be grouped", len(ineligible), len(req.ChargeIDs)).
			WithHintf("These charges are paid, cancelled, awaiting approval or already in a batch: %s", strings.Join(ineligible, ", ")).
			WithReportableDetails(map[string]any{
				"charge_ids": ineligible,
			}).
			Mark(ierr.ErrValidation)
	}

	participantIDs := lo.Uniq(lo.Map(eligible, func(c *charge.Charge, _ int) string { return c.ParticipantID }))
	if len(participantIDs) != 1 {
		return nil, ierr.NewError("charges belong to different participants").
			WithHint("All charges of a batch must belong to the same participant").
			WithReportableDetails(map[string]any{
				"participant_ids": participantIDs,
			}).
			Mark(ierr.ErrValidation)
	}
	participant := participants[participantIDs[0]]

	total := lo.Reduce(eligible, func(sum decimal.Decimal, c *charge.Charge, _ int) decimal.Decimal {
		return sum.Add(c.Value)
	}, decimal.Zero)

	now := time.Now().UTC()
	b := &batch.Batch{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BATCH),
		AccountID:     participant.AccountID,
		ParticipantID: participant.ID,
		TotalValue:    total,
		BatchStatus:   types.BatchStatusPending,
		ExpiresAt:     now.Add(s.Config.Billing.BatchExpiry),
		CreatedBy:     actor.UserID,
		BaseModel:     types.GetDefaultBaseModel(),
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.BatchRepo.Create(ctx, b); err != nil {
			return err
		}

		// the guarded attach is what keeps a charge out of two open batches
		attached, err := s.ChargeRepo.AttachToBatch(ctx, b.ID, req.ChargeIDs)
		if err != nil {
			return err
		}
		if attached != int64(len(req.ChargeIDs)) {
			return ierr.NewError("charges were grouped concurrently").
				WithHint("Some charges were added to another batch meanwhile, please try again").
				WithReportableDetails(map[string]any{
					"requested": len(req.ChargeIDs),
					"attached":  attached,
				}).
				Mark(ierr.ErrVersionConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range eligible {
		c.BatchID = &b.ID
	}
	b.Charges = eligible

	s.Logger.Infow("batch created",
		"batch_id", b.ID,
		"participant_id", b.ParticipantID,
		"charges", len(eligible),
		"total_value", b.TotalValue.String(),
	)
	return dto.NewBatchResponse(b), nil
}

// load returns the batch with its member charges and participant
func (s *batchService) load(ctx context.Context, batchID string) (*batch.Batch, *subscription.Participant, error) {
	b, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}

	b.Charges, err = s.ChargeRepo.ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}

	participant, err := s.SubRepo.GetParticipant(ctx, b.ParticipantID)
	if err != nil {
		return nil, nil, err
	}
	return b, participant, nil
}

func (s *batchService) GetBatch(ctx context.Context, actor types.Actor, batchID string) (*dto.BatchResponse, error) {
	b, participant, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !canActOn(actor, participant, b.AccountID) {
		return nil, errPermissionDenied("view this batch")
	}
	return dto.NewBatchResponse(b), nil
}

func (s *batchService) ConfirmBatch(ctx context.Context, actor types.Actor, batchID string, file *storage.File) (*dto.BatchResponse, error) {
	b, participant, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !canActOn(actor, participant, b.AccountID) {
		return nil, errPermissionDenied("confirm this batch")
	}
	if err := ensureOpen(b); err != nil {
		return nil, err
	}
	if err := storage.ValidateProof(file, s.Config.Billing.MaxProofSizeBytes); err != nil {
		return nil, err
	}

	url, err := s.Storage.Upload(ctx, file, storage.ProofKey("lotes", b.ID, file.Name))
	if err != nil {
		return nil, err
	}

	var updated *batch.Batch
	var replaced *string
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.transition(ctx, batchID, types.BatchStatusAwaitingApprove, ensureOpen)
		if err != nil {
			return err
		}
		replaced = fresh.ProofURL

		now := time.Now().UTC()
		fresh.ProofURL = &url
		fresh.RejectionReason = nil
		fresh.UpdatedAt = now
		if err := s.BatchRepo.Update(ctx, fresh); err != nil {
			return err
		}

		if err := s.mirror(ctx, fresh, func(c *charge.Charge) {
			c.ProofURL = &url
			c.ProofSubmittedAt = &now
		}); err != nil {
			return err
		}
		updated = fresh

		if !participant.IsOwnedBy(actor.UserID) {
			return nil
		}
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:  types.NotificationTypeBatchConfirmed,
			Title: "Comprovante de lote enviado",
			Description: fmt.Sprintf("%s enviou o comprovante de um lote de %d cobranças no valor de %s.",
				participant.Name, len(fresh.Charges), types.FormatCurrency(fresh.TotalValue, s.currency(ctx, fresh.AccountID))),
			EntityID: fresh.ID,
		})
	})
	if err != nil {
		discardProof(ctx, s.Storage, s.Logger, url)
		return nil, err
	}
	if replaced != nil && *replaced != url {
		discardProof(ctx, s.Storage, s.Logger, *replaced)
	}

	s.Logger.Infow("batch confirmed",
		"batch_id", updated.ID,
		"confirmed_by", actor.UserID,
	)
	return dto.NewBatchResponse(updated), nil
}

func (s *batchService) ApproveBatch(ctx context.Context, actor types.Actor, batchID string) (*dto.BatchResponse, error) {
	b, participant, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !actor.HasAuthorityOver(b.AccountID) {
		return nil, errPermissionDenied("approve this batch")
	}

	var updated *batch.Batch
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.transition(ctx, batchID, types.BatchStatusPaid, ensureOpen)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fresh.UpdatedAt = now
		if err := s.BatchRepo.Update(ctx, fresh); err != nil {
			return err
		}

		if err := s.mirror(ctx, fresh, func(c *charge.Charge) {
			c.PaidAt = &now
		}); err != nil {
			return err
		}

		// each activation runs in its own savepoint, the payment itself always commits
		for _, c := range fresh.Charges {
			err := s.DB.WithSavepoint(ctx, func(ctx context.Context) error {
				sub, err := s.SubRepo.Get(ctx, c.SubscriptionID)
				if err != nil {
					return err
				}
				_, err = s.activation.ActivateIfCovered(ctx, sub, c)
				return err
			})
			if err != nil {
				s.Logger.Warnw("subscription activation failed during batch approval",
					"batch_id", fresh.ID,
					"charge_id", c.ID,
					"subscription_id", c.SubscriptionID,
					"error", err,
				)
			}
		}

		updated = fresh
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:  types.NotificationTypeBatchApproved,
			Title: "Lote aprovado",
			Description: fmt.Sprintf("O pagamento do lote de %d cobranças no valor de %s foi confirmado.",
				len(fresh.Charges), types.FormatCurrency(fresh.TotalValue, s.currency(ctx, fresh.AccountID))),
			TargetUserID: participant.UserID,
			EntityID:     fresh.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("batch approved",
		"batch_id", updated.ID,
		"approved_by", actor.UserID,
		"charges", len(updated.Charges),
	)

	deliver(ctx, s.Dispatcher, s.Logger, outboundMessage{
		participant: participant,
		subject:     "Pagamento confirmado",
		body: fmt.Sprintf("Olá %s, o pagamento do seu lote de %d cobranças no valor de %s foi confirmado.",
			participant.Name, len(updated.Charges), types.FormatCurrency(updated.TotalValue, s.currency(ctx, updated.AccountID))),
	})
	return dto.NewBatchResponse(updated), nil
}

func (s *batchService) RejectBatch(ctx context.Context, actor types.Actor, batchID string, reason string) (*dto.BatchResponse, error) {
	b, participant, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !actor.HasAuthorityOver(b.AccountID) {
		return nil, errPermissionDenied("reject this batch")
	}
	if err := requireReasonForOthers(actor, participant, reason); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	var updated *batch.Batch
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.transition(ctx, batchID, types.BatchStatusPending, ensureAwaitingApproval)
		if err != nil {
			return err
		}

		fresh.ProofURL = nil
		fresh.RejectionReason = lo.EmptyableToPtr(reason)
		fresh.UpdatedAt = time.Now().UTC()
		if err := s.BatchRepo.Update(ctx, fresh); err != nil {
			return err
		}

		if err := s.mirror(ctx, fresh, func(c *charge.Charge) {
			c.ClearProof()
		}); err != nil {
			return err
		}
		updated = fresh

		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:        types.NotificationTypeBatchRejected,
			Title:       "Lote rejeitado",
			Description: batchRejectionText(participant, fresh, s.currency(ctx, fresh.AccountID), reason),
			EntityID:    fresh.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("batch rejected",
		"batch_id", updated.ID,
		"rejected_by", actor.UserID,
	)

	deliver(ctx, s.Dispatcher, s.Logger, outboundMessage{
		participant: participant,
		subject:     "Comprovante de lote rejeitado",
		body:        batchRejectionText(participant, updated, s.currency(ctx, updated.AccountID), reason) + " Envie um novo comprovante para concluir o pagamento.",
	})
	return dto.NewBatchResponse(updated), nil
}

func (s *batchService) CancelBatch(ctx context.Context, actor types.Actor, batchID string, reason string) (*dto.BatchResponse, error) {
	return s.cancel(ctx, actor, batchID, reason, types.BatchStatusPending, types.BatchStatusAwaitingApprove)
}

// cancel moves the batch to cancelado when it is in one of allowed and releases its charges
func (s *batchService) cancel(ctx context.Context, actor types.Actor, batchID string, reason string, allowed ...types.BatchStatus) (*dto.BatchResponse, error) {
	b, participant, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !canActOn(actor, participant, b.AccountID) {
		return nil, errPermissionDenied("cancel this batch")
	}
	if err := requireReasonForOthers(actor, participant, reason); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	check := func(b *batch.Batch) error {
		if err := ensureOpen(b); err != nil {
			return err
		}
		if !lo.Contains(allowed, b.BatchStatus) {
			return ierr.NewErrorf("batch is %s", b.BatchStatus).
				WithHintf("Batch cannot be cancelled while %s", b.BatchStatus).
				Mark(ierr.ErrInvalidOperation)
		}
		return nil
	}

	var updated *batch.Batch
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.transition(ctx, batchID, types.BatchStatusCancelled, check)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fresh.CancellationReason = lo.EmptyableToPtr(reason)
		fresh.UpdatedAt = now
		if err := s.BatchRepo.Update(ctx, fresh); err != nil {
			return err
		}

		// members go back to unbatched pendente so they can be grouped again
		members, err := s.ChargeRepo.ListByBatch(ctx, fresh.ID)
		if err != nil {
			return err
		}
		for _, c := range members {
			swapped, err := s.ChargeRepo.CompareAndSwapStatus(ctx, c.ID, c.ChargeStatus, types.ChargeStatusPending)
			if err != nil {
				return err
			}
			if !swapped {
				return errStatusChanged("charge", c.ID, c.ChargeStatus)
			}

			c.ChargeStatus = types.ChargeStatusPending
			c.BatchID = nil
			c.ClearProof()
			c.UpdatedAt = now
			if err := s.ChargeRepo.Update(ctx, c); err != nil {
				return err
			}
		}
		fresh.Charges = members
		updated = fresh

		if actor.IsSystem() || !participant.IsOwnedBy(actor.UserID) {
			return nil
		}
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:        types.NotificationTypeBatchCancelled,
			Title:       "Lote cancelado",
			Description: fmt.Sprintf("%s cancelou um lote de %d cobranças.", participant.Name, len(members)),
			EntityID:    fresh.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("batch cancelled",
		"batch_id", updated.ID,
		"cancelled_by", actor.UserID,
		"reason", reason,
	)
	return dto.NewBatchResponse(updated), nil
}

// transition re-reads the batch inside the transaction, checks it and swaps its status
func (s *batchService) transition(ctx context.Context, batchID string, next types.BatchStatus, check func(*batch.Batch) error) (*batch.Batch, error) {
	fresh, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := check(fresh); err != nil {
		return nil, err
	}

	swapped, err := s.BatchRepo.CompareAndSwapStatus(ctx, fresh.ID, fresh.BatchStatus, next)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, errStatusChanged("batch", fresh.ID, fresh.BatchStatus)
	}

	fresh.BatchStatus = next
	return fresh, nil
}

// mirror copies the batch status onto every member charge and applies fn to each
func (s *batchService) mirror(ctx context.Context, b *batch.Batch, fn func(*charge.Charge)) error {
	members, err := s.ChargeRepo.ListByBatch(ctx, b.ID)
	if err != nil {
		return err
	}

	next := b.BatchStatus.ChargeStatus()
	for _, c := range members {
		swapped, err := s.ChargeRepo.CompareAndSwapStatus(ctx, c.ID, c.ChargeStatus, next)
		if err != nil {
			return err
		}
		if !swapped {
			return errStatusChanged("charge", c.ID, c.ChargeStatus)
		}

		c.ChargeStatus = next
		fn(c)
		c.UpdatedAt = b.UpdatedAt
		if err := s.ChargeRepo.Update(ctx, c); err != nil {
			return err
		}
	}

	b.Charges = members
	return nil
}

func ensureOpen(b *batch.Batch) error {
	if b.IsPaid() {
		return errAlreadyPaid("batch", b.ID)
	}
	if !b.BatchStatus.IsOpen() {
		return ierr.NewErrorf("batch is %s", b.BatchStatus).
			WithHint("This batch is no longer open").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func ensureAwaitingApproval(b *batch.Batch) error {
	if err := ensureOpen(b); err != nil {
		return err
	}
	if b.BatchStatus != types.BatchStatusAwaitingApprove {
		return ierr.NewErrorf("batch is %s", b.BatchStatus).
			WithHint("Only batches awaiting approval can be rejected").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func batchRejectionText(participant *subscription.Participant, b *batch.Batch, currency, reason string) string {
	text := fmt.Sprintf("O comprovante do lote de %s de %s foi rejeitado.",
		participant.Name, types.FormatCurrency(b.TotalValue, currency))
	if reason != "" {
		text += " Motivo: " + reason + "."
	}
	return text
}

// currency returns the account's billing currency, falling back to the platform default
func (s *batchService) currency(ctx context.Context, accountID string) string {
	acc, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil || acc.Currency == "" {
		return types.DefaultCurrency
	}
	return acc.Currency
}
