package service

import (
	"context"
	"fmt"
	"time"

	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/types"
)

// ChargeService handles the proof of payment workflow of a single charge
type ChargeService interface {
	Get(ctx context.Context, actor types.Actor, chargeID string) (*dto.ChargeResponse, error)
	SubmitProof(ctx context.Context, actor types.Actor, chargeID string, file *storage.File) (*dto.ChargeResponse, error)
	Approve(ctx context.Context, actor types.Actor, chargeID string) (*dto.ChargeResponse, error)
	Reject(ctx context.Context, actor types.Actor, chargeID string, reason string) (*dto.ChargeResponse, error)
}

type chargeService struct {
	ServiceParams
	activation ActivationService
	notifier   *Notifier
}

func NewChargeService(params ServiceParams) ChargeService {
	return &chargeService{
		ServiceParams: params,
		activation:    NewActivationService(params),
		notifier:      NewNotifier(params),
	}
}

// load returns the charge with its subscription, participant and streaming
func (s *chargeService) load(ctx context.Context, chargeID string) (*charge.Charge, *subscription.Subscription, error) {
	c, err := s.ChargeRepo.Get(ctx, chargeID)
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.SubRepo.Get(ctx, c.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	return c, sub, nil
}

func (s *chargeService) Get(ctx context.Context, actor types.Actor, chargeID string) (*dto.ChargeResponse, error) {
	c, sub, err := s.load(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if !canActOn(actor, sub.Participant, c.AccountID) {
		return nil, errPermissionDenied("view this charge")
	}
	return dto.NewChargeResponse(c), nil
}

func (s *chargeService) SubmitProof(ctx context.Context, actor types.Actor, chargeID string, file *storage.File) (*dto.ChargeResponse, error) {
	c, sub, err := s.load(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if !sub.Participant.IsOwnedBy(actor.UserID) {
		return nil, errPermissionDenied("submit a proof for this charge")
	}
	if err := validateProofTarget(c); err != nil {
		return nil, err
	}
	if err := storage.ValidateProof(file, s.Config.Billing.MaxProofSizeBytes); err != nil {
		return nil, err
	}

	// the upload is slow network I/O and stays outside the transaction
	url, err := s.Storage.Upload(ctx, file, storage.ProofKey("comprovantes", c.ID, file.Name))
	if err != nil {
		return nil, err
	}

	var updated *charge.Charge
	var replaced *string
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.ChargeRepo.Get(ctx, chargeID)
		if err != nil {
			return err
		}
		if err := validateProofTarget(fresh); err != nil {
			return err
		}
		replaced = fresh.ProofURL

		swapped, err := s.ChargeRepo.CompareAndSwapStatus(ctx, fresh.ID, fresh.ChargeStatus, types.ChargeStatusAwaitingApprove)
		if err != nil {
			return err
		}
		if !swapped {
			return errStatusChanged("charge", fresh.ID, fresh.ChargeStatus)
		}

		now := time.Now().UTC()
		fresh.ChargeStatus = types.ChargeStatusAwaitingApprove
		fresh.ProofURL = &url
		fresh.ProofSubmittedAt = &now
		fresh.UpdatedAt = now
		if err := s.ChargeRepo.Update(ctx, fresh); err != nil {
			return err
		}

		updated = fresh
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:  types.NotificationTypeProofSubmitted,
			Title: "Comprovante enviado",
			Description: fmt.Sprintf("%s enviou o comprovante de %s referente a %s.",
				participantName(sub), types.FormatCurrency(fresh.Value, sub.Currency()), sub.StreamingName()),
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

	s.Logger.Infow("charge proof submitted",
		"charge_id", updated.ID,
		"participant_id", sub.ParticipantID,
	)
	return dto.NewChargeResponse(updated), nil
}

func validateProofTarget(c *charge.Charge) error {
	if c.IsPaid() {
		return errAlreadyPaid("charge", c.ID)
	}
	if c.IsDeleted() || c.ChargeStatus == types.ChargeStatusCancelled {
		return ierr.NewError("charge is cancelled").
			WithHint("A proof cannot be sent for a cancelled charge").
			Mark(ierr.ErrInvalidOperation)
	}
	return ensureUnbatched(c)
}

// ensureUnbatched rejects single charge actions on charges grouped into a batch
func ensureUnbatched(c *charge.Charge) error {
	if c.BatchID == nil {
		return nil
	}
	return ierr.NewError("charge belongs to a batch").
		WithHint("This charge is handled through its batch").
		WithReportableDetails(map[string]any{
			"batch_id": *c.BatchID,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func (s *chargeService) Approve(ctx context.Context, actor types.Actor, chargeID string) (*dto.ChargeResponse, error) {
	c, sub, err := s.load(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if !actor.HasAuthorityOver(c.AccountID) {
		return nil, errPermissionDenied("approve this charge")
	}

	var updated *charge.Charge
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.ChargeRepo.Get(ctx, chargeID)
		if err != nil {
			return err
		}
		if fresh.IsPaid() {
			return errAlreadyPaid("charge", fresh.ID)
		}
		if fresh.IsDeleted() || fresh.ChargeStatus == types.ChargeStatusCancelled {
			return ierr.NewError("charge is cancelled").
				WithHint("A cancelled charge cannot be approved").
				Mark(ierr.ErrInvalidOperation)
		}
		if err := ensureUnbatched(fresh); err != nil {
			return err
		}

		swapped, err := s.ChargeRepo.CompareAndSwapStatus(ctx, fresh.ID, fresh.ChargeStatus, types.ChargeStatusPaid)
		if err != nil {
			return err
		}
		if !swapped {
			return errStatusChanged("charge", fresh.ID, fresh.ChargeStatus)
		}

		now := time.Now().UTC()
		fresh.ChargeStatus = types.ChargeStatusPaid
		fresh.PaidAt = &now
		fresh.UpdatedAt = now
		if err := s.ChargeRepo.Update(ctx, fresh); err != nil {
			return err
		}

		// activation shares this transaction so a paid charge never misses it
		current, err := s.SubRepo.Get(ctx, fresh.SubscriptionID)
		if err != nil {
			return err
		}
		if _, err := s.activation.ActivateIfCovered(ctx, current, fresh); err != nil {
			return err
		}

		updated = fresh
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:  types.NotificationTypeChargeApproved,
			Title: "Pagamento confirmado",
			Description: fmt.Sprintf("Seu pagamento de %s referente a %s foi confirmado.",
				types.FormatCurrency(fresh.Value, sub.Currency()), sub.StreamingName()),
			TargetUserID: participantUserID(sub),
			EntityID:     fresh.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("charge approved",
		"charge_id", updated.ID,
		"approved_by", actor.UserID,
	)

	deliver(ctx, s.Dispatcher, s.Logger, outboundMessage{
		participant: sub.Participant,
		subject:     "Pagamento confirmado - " + sub.StreamingName(),
		body: fmt.Sprintf("Olá %s, seu pagamento de %s referente a %s foi confirmado.",
			participantName(sub), types.FormatCurrency(updated.Value, sub.Currency()), sub.StreamingName()),
	})
	return dto.NewChargeResponse(updated), nil
}

func (s *chargeService) Reject(ctx context.Context, actor types.Actor, chargeID string, reason string) (*dto.ChargeResponse, error) {
	c, sub, err := s.load(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if !actor.HasAuthorityOver(c.AccountID) {
		return nil, errPermissionDenied("reject this charge")
	}

	var updated *charge.Charge
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.ChargeRepo.Get(ctx, chargeID)
		if err != nil {
			return err
		}
		if fresh.IsPaid() {
			return errAlreadyPaid("charge", fresh.ID)
		}
		if fresh.ChargeStatus != types.ChargeStatusAwaitingApprove {
			return ierr.NewErrorf("charge is %s", fresh.ChargeStatus).
				WithHint("Only charges awaiting approval can be rejected").
				WithReportableDetails(map[string]any{
					"status": fresh.ChargeStatus,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		if err := ensureUnbatched(fresh); err != nil {
			return err
		}

		swapped, err := s.ChargeRepo.CompareAndSwapStatus(ctx, fresh.ID, types.ChargeStatusAwaitingApprove, types.ChargeStatusPending)
		if err != nil {
			return err
		}
		if !swapped {
			return errStatusChanged("charge", fresh.ID, types.ChargeStatusAwaitingApprove)
		}

		fresh.ChargeStatus = types.ChargeStatusPending
		fresh.ClearProof()
		fresh.UpdatedAt = time.Now().UTC()
		if err := s.ChargeRepo.Update(ctx, fresh); err != nil {
			return err
		}

		updated = fresh
		return s.notifier.Notify(ctx, fresh.AccountID, NotifyParams{
			Type:         types.NotificationTypeChargeRejected,
			Title:        "Comprovante rejeitado",
			Description:  rejectionText(sub, fresh, reason),
			TargetUserID: participantUserID(sub),
			EntityID:     fresh.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("charge proof rejected",
		"charge_id", updated.ID,
		"rejected_by", actor.UserID,
	)

	deliver(ctx, s.Dispatcher, s.Logger, outboundMessage{
		participant: sub.Participant,
		subject:     "Comprovante rejeitado - " + sub.StreamingName(),
		body:        rejectionText(sub, updated, reason) + " Envie um novo comprovante para concluir o pagamento.",
	})
	return dto.NewChargeResponse(updated), nil
}

func rejectionText(sub *subscription.Subscription, c *charge.Charge, reason string) string {
	text := fmt.Sprintf("O comprovante de %s referente a %s foi rejeitado.",
		types.FormatCurrency(c.Value, sub.Currency()), sub.StreamingName())
	if reason != "" {
		text += " Motivo: " + reason + "."
	}
	return text
}

func participantUserID(sub *subscription.Subscription) *string {
	if sub.Participant == nil {
		return nil
	}
	return sub.Participant.UserID
}
