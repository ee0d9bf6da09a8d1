package service

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/domain/account"
	"github.com/streamshare/streamshare/internal/types"
)

// AccountPlanService keeps administrator accounts on the plan their SaaS subscription pays for
type AccountPlanService interface {
	// CheckPlanDowngrades moves pro accounts whose gateway subscription lapsed back to free
	CheckPlanDowngrades(ctx context.Context) (*dto.PlanCheckResponse, error)
}

type accountPlanService struct {
	ServiceParams
	notifier *Notifier
}

func NewAccountPlanService(params ServiceParams) AccountPlanService {
	return &accountPlanService{
		ServiceParams: params,
		notifier:      NewNotifier(params),
	}
}

func (s *accountPlanService) CheckPlanDowngrades(ctx context.Context) (*dto.PlanCheckResponse, error) {
	accounts, err := s.AccountRepo.ListByPlanWithGatewaySubscription(ctx, types.AccountPlanPro)
	if err != nil {
		return nil, err
	}

	resp := &dto.PlanCheckResponse{Downgraded: []string{}}
	for _, acc := range accounts {
		if acc.GatewaySubscriptionID == nil {
			continue
		}
		resp.Checked++

		status, err := s.Gateway.GetSubscriptionStatus(ctx, *acc.GatewaySubscriptionID)
		if err != nil {
			s.Logger.Errorw("failed to fetch gateway subscription status",
				"account_id", acc.ID,
				"gateway_subscription_id", *acc.GatewaySubscriptionID,
				"error", err,
			)
			resp.Failed = append(resp.Failed, acc.ID)
			continue
		}

		if !status.Status.RequiresDowngrade() {
			continue
		}

		if err := s.downgrade(ctx, acc, status.Status); err != nil {
			s.Logger.Errorw("failed to downgrade account plan",
				"account_id", acc.ID,
				"error", err,
			)
			resp.Failed = append(resp.Failed, acc.ID)
			continue
		}
		resp.Downgraded = append(resp.Downgraded, acc.ID)
	}

	s.Logger.Infow("plan downgrade check completed",
		"checked", resp.Checked,
		"downgraded", len(resp.Downgraded),
		"failed", len(resp.Failed),
	)
	return resp, nil
}

func (s *accountPlanService) downgrade(ctx context.Context, acc *account.Account, status types.GatewaySubscriptionStatus) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		acc.Plan = types.AccountPlanFree
		acc.UpdatedAt = time.Now().UTC()
		if err := s.AccountRepo.Update(ctx, acc); err != nil {
			return err
		}

		s.Logger.Infow("account downgraded to free plan",
			"account_id", acc.ID,
			"gateway_status", status,
		)

		return s.notifier.Notify(ctx, acc.ID, NotifyParams{
			Type:         types.NotificationTypePlanDowngraded,
			Title:        "Plano alterado para gratuito",
			Description:  "A assinatura do plano Pro não está ativa e a conta voltou ao plano gratuito.",
			TargetUserID: &acc.OwnerUserID,
			EntityID:     acc.ID,
		})
	})
}
