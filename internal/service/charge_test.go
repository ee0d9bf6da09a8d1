package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/streamshare/streamshare/internal/domain/notification"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/testutil"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/suite"
)

// pngProof returns a file whose content is detected as PNG
func pngProof() *storage.File {
	return &storage.File{
		Name: "comprovante.png",
		Data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'},
	}
}

type ChargeServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  ChargeService
	testData struct {
		admin       types.Actor
		owner       types.Actor
		participant *subscription.Participant
		sub         *subscription.Subscription
	}
}

func TestChargeService(t *testing.T) {
	suite.Run(t, new(ChargeServiceSuite))
}

func (s *ChargeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewChargeService(newTestServiceParams(&s.BaseServiceTestSuite))

	acc := s.CreateAccount("admin_1")
	s.testData.admin = types.Actor{UserID: "admin_1", AccountID: acc.ID, IsAdmin: true}
	s.testData.owner = types.Actor{UserID: "user_maria"}
	s.testData.participant = s.CreateParticipant(acc.ID, "Maria", "user_maria")
	st := s.CreateStreaming(acc.ID, "Netflix")
	s.testData.sub = s.CreateSubscription(s.testData.participant, st, "29.90")
}

// currentPeriod returns the bounds of a period that includes now
func (s *ChargeServiceSuite) currentPeriod() (time.Time, time.Time) {
	start := types.StartOfDay(s.GetNow()).AddDate(0, 0, -5)
	return start, start.AddDate(0, 1, 0)
}

func (s *ChargeServiceSuite) TestSubmitProof() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPending)

	resp, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusAwaitingApprove, resp.ChargeStatus)
	s.NotNil(resp.ProofURL)
	s.NotNil(resp.ProofSubmittedAt)
	s.Equal(1, s.GetStorage().Uploads())

	stored := s.MustGetCharge(c.ID)
	s.Equal(types.ChargeStatusAwaitingApprove, stored.ChargeStatus)

	notifications := s.GetStores().NotificationRepo.All()
	s.Require().Len(notifications, 1)
	s.Equal(types.NotificationTypeProofSubmitted, notifications[0].Type)
	s.Nil(notifications[0].TargetUserID)
}

func (s *ChargeServiceSuite) TestResubmitProofReplacesStoredFile() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPending)

	first, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.Require().NoError(err)
	second, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.Require().NoError(err)

	s.Equal(types.ChargeStatusAwaitingApprove, second.ChargeStatus)
	s.False(s.GetStorage().Has(*first.ProofURL))
	s.True(s.GetStorage().Has(*second.ProofURL))
	s.Equal(1, s.GetStorage().Uploads())
}

func (s *ChargeServiceSuite) TestSubmitProof_OverdueCharge() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusOverdue)

	resp, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusAwaitingApprove, resp.ChargeStatus)
}

func (s *ChargeServiceSuite) TestSubmitProof_Rejections() {
	start, end := s.currentPeriod()

	s.Run("only the participant can submit", func() {
		c := s.CreateCharge(s.testData.sub, "29.90", start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0), types.ChargeStatusPending)
		_, err := s.service.SubmitProof(s.GetContext(), s.testData.admin, c.ID, pngProof())
		s.True(ierr.IsPermissionDenied(err))
	})

	s.Run("paid charge", func() {
		c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPaid)
		_, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
		s.True(ierr.IsAlreadyPaid(err))
	})

	s.Run("cancelled charge", func() {
		c := s.CreateCharge(s.testData.sub, "29.90", start.AddDate(0, 2, 0), end.AddDate(0, 2, 0), types.ChargeStatusCancelled)
		_, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("batched charge", func() {
		c := s.CreateCharge(s.testData.sub, "29.90", start.AddDate(0, 3, 0), end.AddDate(0, 3, 0), types.ChargeStatusPending)
		_, err := s.GetStores().ChargeRepo.AttachToBatch(s.GetContext(), "lote_1", []string{c.ID})
		s.Require().NoError(err)

		_, err = s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("not an image", func() {
		c := s.CreateCharge(s.testData.sub, "29.90", start.AddDate(0, 4, 0), end.AddDate(0, 4, 0), types.ChargeStatusPending)
		_, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, &storage.File{
			Name: "comprovante.png",
			Data: []byte("plain text pretending to be an image"),
		})
		s.True(ierr.IsValidation(err))
	})

	s.Zero(s.GetStorage().Uploads())
}

func (s *ChargeServiceSuite) TestApproveReactivatesSuspendedSubscription() {
	sub := s.MustGetSubscription(s.testData.sub.ID)
	sub.Suspend(s.GetNow(), types.SuspensionReasonOverdue)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusAwaitingApprove)

	resp, err := s.service.Approve(s.GetContext(), s.testData.admin, c.ID)
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPaid, resp.ChargeStatus)
	s.NotNil(resp.PaidAt)

	stored := s.MustGetSubscription(sub.ID)
	s.Equal(types.SubscriptionStatusActive, stored.SubscriptionStatus)
	s.Nil(stored.SuspendedAt)
	s.Nil(stored.SuspensionReason)

	kinds := lo.Map(s.GetStores().NotificationRepo.All(), func(n *notification.Notification, _ int) types.NotificationType { return n.Type })
	s.ElementsMatch([]types.NotificationType{
		types.NotificationTypeSubscriptionReactivated,
		types.NotificationTypeChargeApproved,
	}, kinds)

	s.Equal(2, s.GetDispatcher().Sent())
	s.Equal(1, s.GetDB().TxCount)
}

func (s *ChargeServiceSuite) TestApprovePastPeriodKeepsSuspension() {
	sub := s.MustGetSubscription(s.testData.sub.ID)
	sub.Suspend(s.GetNow(), types.SuspensionReasonOverdue)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start.AddDate(0, -2, 0), end.AddDate(0, -2, 0), types.ChargeStatusOverdue)

	_, err := s.service.Approve(s.GetContext(), s.testData.admin, c.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, s.MustGetSubscription(sub.ID).SubscriptionStatus)
}

func (s *ChargeServiceSuite) TestApprove_Rejections() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusAwaitingApprove)

	_, err := s.service.Approve(s.GetContext(), s.testData.owner, c.ID)
	s.True(ierr.IsPermissionDenied(err))

	other := types.Actor{UserID: "admin_2", AccountID: "acc_other", IsAdmin: true}
	_, err = s.service.Approve(s.GetContext(), other, c.ID)
	s.True(ierr.IsPermissionDenied(err))

	_, err = s.service.Approve(s.GetContext(), s.testData.admin, c.ID)
	s.Require().NoError(err)

	_, err = s.service.Approve(s.GetContext(), s.testData.admin, c.ID)
	s.True(ierr.IsAlreadyPaid(err))

	_, err = s.service.Reject(s.GetContext(), s.testData.admin, c.ID, "ilegível")
	s.True(ierr.IsAlreadyPaid(err))
}

func (s *ChargeServiceSuite) TestReject() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPending)

	_, err := s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.Require().NoError(err)

	resp, err := s.service.Reject(s.GetContext(), s.testData.admin, c.ID, "valor divergente")
	s.Require().NoError(err)
	s.Equal(types.ChargeStatusPending, resp.ChargeStatus)
	s.Nil(resp.ProofURL)
	s.Nil(resp.ProofSubmittedAt)

	notifications := s.GetStores().NotificationRepo.All()
	s.Require().Len(notifications, 2)
	rejected, ok := lo.Find(notifications, func(n *notification.Notification) bool {
		return n.Type == types.NotificationTypeChargeRejected
	})
	s.Require().True(ok)
	s.Contains(rejected.Description, "valor divergente")
	s.Require().NotNil(rejected.TargetUserID)
	s.Equal("user_maria", *rejected.TargetUserID)

	// the participant can try again
	_, err = s.service.SubmitProof(s.GetContext(), s.testData.owner, c.ID, pngProof())
	s.NoError(err)
}

func (s *ChargeServiceSuite) TestRejectRequiresPendingApproval() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPending)

	_, err := s.service.Reject(s.GetContext(), s.testData.admin, c.ID, "")
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ChargeServiceSuite) TestGet() {
	start, end := s.currentPeriod()
	c := s.CreateCharge(s.testData.sub, "29.90", start, end, types.ChargeStatusPending)

	resp, err := s.service.Get(s.GetContext(), s.testData.owner, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, resp.ID)

	_, err = s.service.Get(s.GetContext(), s.testData.admin, c.ID)
	s.NoError(err)

	_, err = s.service.Get(s.GetContext(), types.Actor{UserID: "user_someone"}, c.ID)
	s.True(ierr.IsPermissionDenied(err))

	_, err = s.service.Get(s.GetContext(), s.testData.owner, "cob_missing")
	s.True(ierr.IsNotFound(err))
}
