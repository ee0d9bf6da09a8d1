package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/gateway"
	"github.com/streamshare/streamshare/internal/types"
	"golang.org/x/time/rate"
)

// BillingService runs the recurring billing jobs
type BillingService interface {
	// ProcessBillingCycle renews, suspends and cancels subscriptions. Only one cycle runs
	// at a time across all replicas; a run that cannot take the lock is skipped.
	ProcessBillingCycle(ctx context.Context, req *dto.BillingCycleRequest) (*dto.BillingCycleResponse, error)

	// ExpireBatches cancels pendente batches that outlived their expiry and releases their charges
	ExpireBatches(ctx context.Context) (*dto.ExpireBatchesResponse, error)
}

type billingService struct {
	ServiceParams
	batchService *batchService
	notifier     *Notifier
	renewalCfg   RenewalConfig
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
		batchService:  newBatchService(params),
		notifier:      NewNotifier(params),
		renewalCfg:    NewRenewalConfig(params.Config.Billing),
	}
}

// renewal is one subscription the cycle wants to bill again
type renewal struct {
	sub   *subscription.Subscription
	draft *ChargeDraft
}

// cyclePlan is the outcome of evaluating every subscription of a run
type cyclePlan struct {
	renewals      []*renewal
	suspensions   []*subscription.Subscription
	cancellations []*subscription.Subscription
}

func (s *billingService) ProcessBillingCycle(ctx context.Context, req *dto.BillingCycleRequest) (*dto.BillingCycleResponse, error) {
	if req == nil {
		req = &dto.BillingCycleRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.Billing.CycleTimeout)
	defer cancel()

	now := time.Now().UTC()
	if req.ReferenceTime != nil {
		now = req.ReferenceTime.UTC()
	}
	resp := &dto.BillingCycleResponse{ReferenceTime: now}

	release, acquired, err := s.DB.TryAdvisoryLock(ctx, s.Config.Billing.LockKey)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.Logger.Infow("billing cycle already running elsewhere, skipping",
			"lock_key", s.Config.Billing.LockKey,
		)
		resp.Skipped = true
		return resp, nil
	}
	defer release()

	s.Logger.Infow("starting billing cycle",
		"account_id", req.AccountID,
		"reference_time", now,
	)

	// overdue marking is a pure date comparison and safe to repeat
	marked, err := s.ChargeRepo.MarkOverdue(ctx, types.StartOfDay(now))
	if err != nil {
		return nil, err
	}
	resp.OverdueMarked = marked

	plan, evaluated, err := s.evaluate(ctx, req.AccountID, now)
	if err != nil {
		return nil, err
	}
	resp.Evaluated = evaluated

	// gateway calls happen before the transaction so no connection is held across them
	staged, deferred := s.stageGatewayCalls(ctx, plan.renewals)
	resp.Deferred = len(deferred)

	var created []*createdCharge
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		resp.Suspended, txErr = s.applySuspensions(ctx, plan.suspensions, now)
		if txErr != nil {
			return txErr
		}

		created, resp.Duplicates, txErr = s.applyRenewals(ctx, plan.renewals, staged, deferred, now)
		if txErr != nil {
			return txErr
		}
		resp.Renewed = len(created)

		resp.Cancelled, txErr = s.applyCancellations(ctx, plan.cancellations, now)
		return txErr
	})
	if err != nil {
		s.Logger.Errorw("billing cycle commit failed",
			"error", err,
			"reference_time", now,
		)
		s.Sentry.CaptureException(err, map[string]string{"job": "billing_cycle"})
		return nil, err
	}

	s.notifyCreatedCharges(ctx, created)

	s.Logger.Infow("billing cycle completed",
		"overdue_marked", resp.OverdueMarked,
		"evaluated", resp.Evaluated,
		"renewed", resp.Renewed,
		"suspended", resp.Suspended,
		"cancelled", resp.Cancelled,
		"deferred", resp.Deferred,
		"duplicates", resp.Duplicates,
	)
	return resp, nil
}

// evaluate loads every ativa subscription with its charges and buckets the decisions
func (s *billingService) evaluate(ctx context.Context, accountID string, now time.Time) (*cyclePlan, int, error) {
	subs, err := s.SubRepo.ListActiveForBilling(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	plan := &cyclePlan{}
	if len(subs) == 0 {
		return plan, 0, nil
	}

	ids := lo.Map(subs, func(sub *subscription.Subscription, _ int) string { return sub.ID })

	latest, err := s.ChargeRepo.GetLatestBySubscriptionIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	oldestUnpaid, err := s.ChargeRepo.GetOldestUnpaidBySubscriptionIDs(ctx, ids, now)
	if err != nil {
		return nil, 0, err
	}

	for _, sub := range subs {
		decision := EvaluateRenewal(RenewalInput{
			Subscription: sub,
			LatestCharge: latest[sub.ID],
			OldestUnpaid: oldestUnpaid[sub.ID],
		}, now, s.renewalCfg)

		switch decision.Action {
		case RenewalActionCreateCharge:
			plan.renewals = append(plan.renewals, &renewal{sub: sub, draft: decision.Draft})
		case RenewalActionSuspend:
			plan.suspensions = append(plan.suspensions, sub)
		case RenewalActionCancelScheduled:
			plan.cancellations = append(plan.cancellations, sub)
		}
	}

	return plan, len(subs), nil
}

// stageGatewayCalls mints the PIX payloads of the renewals. The returned map is keyed by
// external reference. Subscriptions whose call failed are deferred to the next cycle.
func (s *billingService) stageGatewayCalls(ctx context.Context, renewals []*renewal) (map[string]*gateway.PixChargeResult, map[string]bool) {
	staged := make(map[string]*gateway.PixChargeResult)
	deferred := make(map[string]bool)

	pix := lo.Filter(renewals, func(r *renewal, _ int) bool {
		return r.draft.PaymentMethod == types.PaymentMethodPix
	})
	if len(pix) == 0 {
		return staged, deferred
	}

	var mu sync.Mutex
	limiter := rate.NewLimiter(rate.Limit(s.Config.Billing.GatewayRPS), 1)
	p := pool.New().WithMaxGoroutines(s.Config.Billing.GatewayConcurrency)

	for _, r := range pix {
		r := r
		p.Go(func() {
			res, err := s.createPixCharge(ctx, limiter, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				deferred[r.sub.ID] = true
				return
			}
			staged[r.draft.ExternalReference] = res
		})
	}
	p.Wait()

	return staged, deferred
}

func (s *billingService) createPixCharge(ctx context.Context, limiter *rate.Limiter, r *renewal) (*gateway.PixChargeResult, error) {
	if err := limiter.Wait(ctx); err != nil {
		s.Logger.Warnw("gateway call not attempted before cycle deadline",
			"subscription_id", r.sub.ID,
			"error", err,
		)
		return nil, err
	}

	span, spanCtx := s.Sentry.StartGatewaySpan(ctx, "create_pix_charge", map[string]any{
		"subscription_id":    r.sub.ID,
		"external_reference": r.draft.ExternalReference,
	})
	if span != nil {
		defer span.Finish()
	}

	payerEmail := ""
	if r.sub.Participant != nil {
		payerEmail = lo.FromPtr(r.sub.Participant.Email)
	}

	res, err := s.Gateway.CreatePixCharge(spanCtx, &gateway.PixChargeRequest{
		IdempotencyKey: r.draft.ExternalReference,
		Title:          fmt.Sprintf("%s - %s", r.sub.StreamingName(), r.draft.PeriodStart.Format("01/2006")),
		Description: fmt.Sprintf("Período de %s a %s",
			r.draft.PeriodStart.Format("02/01/2006"), r.draft.PeriodEnd.Format("02/01/2006")),
		Amount:     r.draft.Value,
		PayerEmail: payerEmail,
		DueDate:    r.draft.DueDate,
	})
	if err != nil {
		s.Logger.Errorw("gateway failed to create pix charge, deferring renewal",
			"subscription_id", r.sub.ID,
			"external_reference", r.draft.ExternalReference,
			"error", err,
		)
		s.Sentry.CaptureException(err, map[string]string{
			"subscription_id": r.sub.ID,
			"phase":           "stage_gateway_calls",
		})
		return nil, err
	}
	return res, nil
}

func (s *billingService) applySuspensions(ctx context.Context, subs []*subscription.Subscription, now time.Time) (int, error) {
	count := 0
	for _, sub := range subs {
		swapped, err := s.SubRepo.CompareAndSwapStatus(ctx, sub.ID, types.SubscriptionStatusActive, types.SubscriptionStatusSuspended)
		if err != nil {
			return count, err
		}
		if !swapped {
			s.Logger.Warnw("subscription left ativa before suspension, skipping", "subscription_id", sub.ID)
			continue
		}

		sub.Suspend(now, types.SuspensionReasonOverdue)
		sub.UpdatedAt = now
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return count, err
		}

		if err := s.notifier.Notify(ctx, sub.AccountID, NotifyParams{
			Type:        types.NotificationTypeSubscriptionSuspended,
			Title:       "Assinatura suspensa",
			Description: fmt.Sprintf("A assinatura de %s em %s foi suspensa por cobrança em atraso.", participantName(sub), sub.StreamingName()),
			EntityID:    sub.ID,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// createdCharge is a renewal committed by the cycle, kept for the post-commit notifications
type createdCharge struct {
	sub    *subscription.Subscription
	charge *charge.Charge
}

func (s *billingService) applyRenewals(
	ctx context.Context,
	renewals []*renewal,
	staged map[string]*gateway.PixChargeResult,
	deferred map[string]bool,
	now time.Time,
) ([]*createdCharge, int, error) {
	var created []*createdCharge
	duplicates := 0

	for _, r := range renewals {
		if deferred[r.sub.ID] {
			continue
		}

		// the evaluation read is stale by now, this check is the real idempotency boundary
		exists, err := s.ChargeRepo.ExistsForPeriod(ctx, r.sub.ID, r.draft.PeriodStart)
		if err != nil {
			return nil, 0, err
		}
		if exists {
			duplicates++
			continue
		}

		c := r.draft.ToCharge()
		if res, ok := staged[r.draft.ExternalReference]; ok {
			c.GatewayTransactionID = lo.ToPtr(res.GatewayID)
			c.GatewayProvider = lo.EmptyableToPtr(res.Provider)
			c.PixQRCodeImage = lo.EmptyableToPtr(res.QRCodeImage)
			c.PixQRCodeText = lo.EmptyableToPtr(res.QRCodeText)
		}

		if err := s.ChargeRepo.Create(ctx, c); err != nil {
			return nil, 0, err
		}

		if r.draft.SetBillingAnchor != nil {
			r.sub.BillingAnchor = r.draft.SetBillingAnchor
			r.sub.UpdatedAt = now
			if err := s.SubRepo.Update(ctx, r.sub); err != nil {
				return nil, 0, err
			}
		}

		var target *string
		if r.sub.Participant != nil {
			target = r.sub.Participant.UserID
		}
		if err := s.notifier.Notify(ctx, r.sub.AccountID, NotifyParams{
			Type:  types.NotificationTypeChargeCreated,
			Title: "Nova cobrança gerada",
			Description: fmt.Sprintf("Cobrança de %s para %s, vencimento em %s.",
				types.FormatCurrency(c.Value, r.sub.Currency()), r.sub.StreamingName(), c.DueDate.Format("02/01/2006")),
			TargetUserID: target,
			EntityID:     c.ID,
		}); err != nil {
			return nil, 0, err
		}

		created = append(created, &createdCharge{sub: r.sub, charge: c})
	}

	return created, duplicates, nil
}

func (s *billingService) applyCancellations(ctx context.Context, subs []*subscription.Subscription, now time.Time) (int, error) {
	count := 0
	for _, sub := range subs {
		swapped, err := s.SubRepo.CompareAndSwapStatus(ctx, sub.ID, types.SubscriptionStatusActive, types.SubscriptionStatusCancelled)
		if err != nil {
			return count, err
		}
		if !swapped {
			s.Logger.Warnw("subscription left ativa before cancellation, skipping", "subscription_id", sub.ID)
			continue
		}

		if err := s.notifier.Notify(ctx, sub.AccountID, NotifyParams{
			Type:        types.NotificationTypeSubscriptionCancelled,
			Title:       "Assinatura encerrada",
			Description: fmt.Sprintf("A assinatura de %s em %s foi encerrada ao fim do período pago.", participantName(sub), sub.StreamingName()),
			EntityID:    sub.ID,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *billingService) notifyCreatedCharges(ctx context.Context, created []*createdCharge) {
	for _, cc := range created {
		body := fmt.Sprintf("Sua cobrança de %s referente a %s (%s a %s) foi gerada e vence em %s.",
			types.FormatCurrency(cc.charge.Value, cc.sub.Currency()),
			cc.sub.StreamingName(),
			cc.charge.PeriodStart.Format("02/01/2006"),
			cc.charge.PeriodEnd.Format("02/01/2006"),
			cc.charge.DueDate.Format("02/01/2006"),
		)
		if cc.charge.PixQRCodeText != nil {
			body += "\n\nPIX copia e cola:\n" + *cc.charge.PixQRCodeText
		}

		deliver(ctx, s.Dispatcher, s.Logger, outboundMessage{
			participant: cc.sub.Participant,
			subject:     "Nova cobrança - " + cc.sub.StreamingName(),
			body:        body,
		})
	}
}

func (s *billingService) ExpireBatches(ctx context.Context) (*dto.ExpireBatchesResponse, error) {
	now := time.Now().UTC()
	expired, err := s.BatchRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.ExpireBatchesResponse{Expired: []string{}}
	actor := types.SystemActor()
	for _, b := range expired {
		_, err := s.batchService.cancel(ctx, actor, b.ID, "Lote expirado", types.BatchStatusPending)
		if err != nil {
			// a batch confirmed meanwhile is no longer pendente and must be left alone
			if ierr.IsInvalidOperation(err) || ierr.IsVersionConflict(err) || ierr.IsAlreadyPaid(err) {
				s.Logger.Infow("batch changed before expiry, skipping", "batch_id", b.ID, "error", err)
				continue
			}
			s.Logger.Errorw("failed to expire batch", "batch_id", b.ID, "error", err)
			resp.Failed = append(resp.Failed, b.ID)
			continue
		}
		resp.Expired = append(resp.Expired, b.ID)
	}

	s.Logger.Infow("batch expiry completed",
		"expired", len(resp.Expired),
		"failed", len(resp.Failed),
	)
	return resp, nil
}

func participantName(sub *subscription.Subscription) string {
	if sub.Participant == nil || sub.Participant.Name == "" {
		return "participante"
	}
	return sub.Participant.Name
}
