package service

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/notification"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/testutil"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/suite"
)

type BatchServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  BatchService
	testData struct {
		admin   types.Actor
		owner   types.Actor
		sub     *subscription.Subscription
		other   *subscription.Subscription
		charges []*charge.Charge
	}
}

func TestBatchService(t *testing.T) {
	suite.Run(t, new(BatchServiceSuite))
}

func (s *BatchServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBatchService(newTestServiceParams(&s.BaseServiceTestSuite))

	acc := s.CreateAccount("admin_1")
	s.testData.admin = types.Actor{UserID: "admin_1", AccountID: acc.ID, IsAdmin: true}
	s.testData.owner = types.Actor{UserID: "user_maria"}

	maria := s.CreateParticipant(acc.ID, "Maria", "user_maria")
	joao := s.CreateParticipant(acc.ID, "João", "user_joao")
	netflix := s.CreateStreaming(acc.ID, "Netflix")
	spotify := s.CreateStreaming(acc.ID, "Spotify")

	s.testData.sub = s.CreateSubscription(maria, netflix, "19.90")
	second := s.CreateSubscription(maria, spotify, "9.99")
	s.testData.other = s.CreateSubscription(joao, netflix, "19.90")

	start := types.StartOfDay(s.GetNow()).AddDate(0, 0, -5)
	s.testData.charges = []*charge.Charge{
		s.CreateCharge(s.testData.sub, "19.90", start, start.AddDate(0, 1, 0), types.ChargeStatusPending),
		s.CreateCharge(second, "9.99", start, start.AddDate(0, 1, 0), types.ChargeStatusOverdue),
		s.CreateCharge(s.testData.sub, "45.50", start.AddDate(0, -1, 0), start, types.ChargeStatusOverdue),
	}
}

func (s *BatchServiceSuite) chargeIDs() []string {
	return lo.Map(s.testData.charges, func(c *charge.Charge, _ int) string { return c.ID })
}

func (s *BatchServiceSuite) createBatch() *dto.BatchResponse {
	resp, err := s.service.CreateBatch(s.GetContext(), s.testData.owner, dto.CreateBatchRequest{ChargeIDs: s.chargeIDs()})
	s.Require().NoError(err)
	return resp
}

func (s *BatchServiceSuite) batchCount() int {
	n, err := s.GetStores().BatchRepo.Count(s.GetContext(), nil, nil)
	s.Require().NoError(err)
	return n
}

func (s *BatchServiceSuite) TestCreateBatch() {
	resp := s.createBatch()

	s.True(decimal.RequireFromString("75.39").Equal(resp.TotalValue))
	s.Equal(types.BatchStatusPending, resp.BatchStatus)
	s.Equal(s.testData.sub.ParticipantID, resp.ParticipantID)
	s.Equal("user_maria", resp.CreatedBy)
	s.Len(resp.Charges, 3)
	s.WithinDuration(time.Now().UTC().Add(s.GetConfig().Billing.BatchExpiry), resp.ExpiresAt, time.Minute)

	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Require().NotNil(c.BatchID)
		s.Equal(resp.ID, *c.BatchID)
	}
}

func (s *BatchServiceSuite) TestCreateBatch_AdminOnBehalf() {
	resp, err := s.service.CreateBatch(s.GetContext(), s.testData.admin, dto.CreateBatchRequest{ChargeIDs: s.chargeIDs()})
	s.Require().NoError(err)
	s.Equal("admin_1", resp.CreatedBy)
}

func (s *BatchServiceSuite) TestCreateBatch_Rejections() {
	start := types.StartOfDay(s.GetNow()).AddDate(0, 0, -5)
	foreign := s.CreateCharge(s.testData.other, "19.90", start, start.AddDate(0, 1, 0), types.ChargeStatusPending)
	paid := s.CreateCharge(s.testData.sub, "19.90", start.AddDate(0, -2, 0), start.AddDate(0, -1, 0), types.ChargeStatusPaid)

	tests := []struct {
		name  string
		actor types.Actor
		ids   []string
		check func(error) bool
	}{
		{
			name:  "mixed participants",
			actor: s.testData.admin,
			ids:   append(s.chargeIDs(), foreign.ID),
			check: ierr.IsValidation,
		},
		{
			name:  "paid charge",
			actor: s.testData.owner,
			ids:   []string{s.testData.charges[0].ID, paid.ID},
			check: ierr.IsValidation,
		},
		{
			name:  "unknown charge",
			actor: s.testData.owner,
			ids:   []string{s.testData.charges[0].ID, "cob_missing"},
			check: ierr.IsValidation,
		},
		{
			name:  "duplicate ids",
			actor: s.testData.owner,
			ids:   []string{s.testData.charges[0].ID, s.testData.charges[0].ID},
			check: ierr.IsValidation,
		},
		{
			name:  "empty request",
			actor: s.testData.owner,
			ids:   nil,
			check: ierr.IsValidation,
		},
		{
			name:  "another participant",
			actor: types.Actor{UserID: "user_joao"},
			ids:   s.chargeIDs(),
			check: ierr.IsPermissionDenied,
		},
		{
			name:  "another participant's paid charge",
			actor: types.Actor{UserID: "user_joao"},
			ids:   []string{paid.ID, foreign.ID},
			check: ierr.IsPermissionDenied,
		},
		{
			name:  "own charges mixed with another participant's",
			actor: s.testData.owner,
			ids:   append(s.chargeIDs(), foreign.ID),
			check: ierr.IsPermissionDenied,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateBatch(s.GetContext(), tt.actor, dto.CreateBatchRequest{ChargeIDs: tt.ids})
			s.Require().Error(err)
			s.True(tt.check(err), "unexpected error: %v", err)
		})
	}

	s.Zero(s.batchCount())
	for _, id := range s.chargeIDs() {
		s.Nil(s.MustGetCharge(id).BatchID)
	}
}

func (s *BatchServiceSuite) TestChargeCannotJoinTwoBatches() {
	s.createBatch()

	_, err := s.service.CreateBatch(s.GetContext(), s.testData.owner, dto.CreateBatchRequest{ChargeIDs: s.chargeIDs()[:1]})
	s.True(ierr.IsValidation(err))
	s.Equal(1, s.batchCount())
}

func (s *BatchServiceSuite) TestConfirmAndApprove() {
	sub := s.MustGetSubscription(s.testData.sub.ID)
	sub.Suspend(s.GetNow(), types.SuspensionReasonOverdue)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	created := s.createBatch()

	confirmed, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)
	s.Equal(types.BatchStatusAwaitingApprove, confirmed.BatchStatus)
	s.NotNil(confirmed.ProofURL)
	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Equal(types.ChargeStatusAwaitingApprove, c.ChargeStatus)
		s.NotNil(c.ProofURL)
	}

	approved, err := s.service.ApproveBatch(s.GetContext(), s.testData.admin, created.ID)
	s.Require().NoError(err)
	s.Equal(types.BatchStatusPaid, approved.BatchStatus)
	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Equal(types.ChargeStatusPaid, c.ChargeStatus)
		s.NotNil(c.PaidAt)
	}

	// the current period charge brings the suspended subscription back
	s.Equal(types.SubscriptionStatusActive, s.MustGetSubscription(sub.ID).SubscriptionStatus)

	kinds := lo.Map(s.GetStores().NotificationRepo.All(), func(n *notification.Notification, _ int) types.NotificationType {
		return n.Type
	})
	s.Contains(kinds, types.NotificationTypeBatchConfirmed)
	s.Contains(kinds, types.NotificationTypeBatchApproved)
	s.Contains(kinds, types.NotificationTypeSubscriptionReactivated)
}

// failingSubscriptionWrites lets reads through and fails every subscription write
type failingSubscriptionWrites struct {
	subscription.Repository
	err error
}

func (r *failingSubscriptionWrites) Update(ctx context.Context, sub *subscription.Subscription) error {
	return r.err
}

func (r *failingSubscriptionWrites) Reactivate(ctx context.Context, id string, expected types.SubscriptionStatus) (bool, error) {
	return false, r.err
}

func (s *BatchServiceSuite) TestApproveCommitsPaymentWhenActivationFails() {
	sub := s.MustGetSubscription(s.testData.sub.ID)
	sub.Suspend(s.GetNow(), types.SuspensionReasonOverdue)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.SubRepo = &failingSubscriptionWrites{
		Repository: s.GetStores().SubscriptionRepo,
		err:        ierr.NewError("connection reset").Mark(ierr.ErrDatabase),
	}
	service := NewBatchService(params)

	created := s.createBatch()
	_, err := service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)

	approved, err := service.ApproveBatch(s.GetContext(), s.testData.admin, created.ID)
	s.Require().NoError(err)
	s.Equal(types.BatchStatusPaid, approved.BatchStatus)
	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Equal(types.ChargeStatusPaid, c.ChargeStatus)
		s.NotNil(c.PaidAt)
	}

	// only the current period charge of the suspended subscription attempts a reactivation
	s.Equal(1, s.GetDB().SavepointRollbacks)

	stored := s.MustGetSubscription(sub.ID)
	s.Equal(types.SubscriptionStatusSuspended, stored.SubscriptionStatus)
	s.NotNil(stored.SuspendedAt)
	s.Require().NotNil(stored.SuspensionReason)
	s.Equal(types.SuspensionReasonOverdue, *stored.SuspensionReason)

	kinds := lo.Map(s.GetStores().NotificationRepo.All(), func(n *notification.Notification, _ int) types.NotificationType {
		return n.Type
	})
	s.Contains(kinds, types.NotificationTypeBatchApproved)
	s.NotContains(kinds, types.NotificationTypeSubscriptionReactivated)
}

func (s *BatchServiceSuite) TestReconfirmReplacesStoredProof() {
	created := s.createBatch()

	first, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)
	s.Require().NotNil(first.ProofURL)

	second, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)
	s.Require().NotNil(second.ProofURL)
	s.NotEqual(*first.ProofURL, *second.ProofURL)

	s.False(s.GetStorage().Has(*first.ProofURL))
	s.True(s.GetStorage().Has(*second.ProofURL))
	s.Equal(1, s.GetStorage().Uploads())
}

func (s *BatchServiceSuite) TestPaidBatchIsTerminal() {
	created := s.createBatch()
	_, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)
	_, err = s.service.ApproveBatch(s.GetContext(), s.testData.admin, created.ID)
	s.Require().NoError(err)

	_, err = s.service.ApproveBatch(s.GetContext(), s.testData.admin, created.ID)
	s.True(ierr.IsAlreadyPaid(err))

	_, err = s.service.RejectBatch(s.GetContext(), s.testData.admin, created.ID, "comprovante ilegível")
	s.True(ierr.IsAlreadyPaid(err))

	_, err = s.service.CancelBatch(s.GetContext(), s.testData.owner, created.ID, "")
	s.True(ierr.IsAlreadyPaid(err))

	_, err = s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.True(ierr.IsAlreadyPaid(err))

	for _, id := range s.chargeIDs() {
		s.Equal(types.ChargeStatusPaid, s.MustGetCharge(id).ChargeStatus)
	}
}

func (s *BatchServiceSuite) TestRejectBatch() {
	created := s.createBatch()

	_, err := s.service.RejectBatch(s.GetContext(), s.testData.admin, created.ID, "ainda não enviado")
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)

	_, err = s.service.RejectBatch(s.GetContext(), s.testData.admin, created.ID, "  ")
	s.True(ierr.IsValidation(err))

	rejected, err := s.service.RejectBatch(s.GetContext(), s.testData.admin, created.ID, "valor divergente")
	s.Require().NoError(err)
	s.Equal(types.BatchStatusPending, rejected.BatchStatus)
	s.Nil(rejected.ProofURL)
	s.Require().NotNil(rejected.RejectionReason)
	s.Equal("valor divergente", *rejected.RejectionReason)

	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Equal(types.ChargeStatusPending, c.ChargeStatus)
		s.Nil(c.ProofURL)
		s.NotNil(c.BatchID)
	}

	// a new proof can follow the rejection
	again, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)
	s.Nil(again.RejectionReason)
}

func (s *BatchServiceSuite) TestCancelReleasesCharges() {
	created := s.createBatch()

	_, err := s.service.CancelBatch(s.GetContext(), s.testData.admin, created.ID, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.CancelBatch(s.GetContext(), types.Actor{UserID: "user_joao"}, created.ID, "não é meu")
	s.True(ierr.IsPermissionDenied(err))

	cancelled, err := s.service.CancelBatch(s.GetContext(), s.testData.owner, created.ID, "")
	s.Require().NoError(err)
	s.Equal(types.BatchStatusCancelled, cancelled.BatchStatus)

	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Nil(c.BatchID)
		s.Equal(types.ChargeStatusPending, c.ChargeStatus)
	}

	_, err = s.service.CancelBatch(s.GetContext(), s.testData.owner, created.ID, "")
	s.True(ierr.IsInvalidOperation(err))

	// released charges can be grouped again
	regrouped := s.createBatch()
	s.NotEqual(created.ID, regrouped.ID)
	s.True(decimal.RequireFromString("75.39").Equal(regrouped.TotalValue))
}

func (s *BatchServiceSuite) TestCancelAwaitingApproval() {
	created := s.createBatch()
	_, err := s.service.ConfirmBatch(s.GetContext(), s.testData.owner, created.ID, pngProof())
	s.Require().NoError(err)

	cancelled, err := s.service.CancelBatch(s.GetContext(), s.testData.admin, created.ID, "pagamento duplicado")
	s.Require().NoError(err)
	s.Equal(types.BatchStatusCancelled, cancelled.BatchStatus)
	s.Require().NotNil(cancelled.CancellationReason)

	for _, id := range s.chargeIDs() {
		c := s.MustGetCharge(id)
		s.Equal(types.ChargeStatusPending, c.ChargeStatus)
		s.Nil(c.ProofURL)
	}
}

func (s *BatchServiceSuite) TestBatchedChargeRejectsSingleActions() {
	created := s.createBatch()
	charges := NewChargeService(newTestServiceParams(&s.BaseServiceTestSuite))

	_, err := charges.Approve(s.GetContext(), s.testData.admin, s.testData.charges[0].ID)
	s.True(ierr.IsInvalidOperation(err))

	_, err = charges.SubmitProof(s.GetContext(), s.testData.owner, s.testData.charges[0].ID, pngProof())
	s.True(ierr.IsInvalidOperation(err))

	got, err := s.service.GetBatch(s.GetContext(), s.testData.owner, created.ID)
	s.Require().NoError(err)
	s.Equal(types.BatchStatusPending, got.BatchStatus)
}
