package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/streamshare/streamshare/internal/domain/account"
	"github.com/streamshare/streamshare/internal/testutil"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/suite"
)

type AccountPlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AccountPlanService
}

func TestAccountPlanService(t *testing.T) {
	suite.Run(t, new(AccountPlanServiceSuite))
}

func (s *AccountPlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewAccountPlanService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *AccountPlanServiceSuite) proAccount(owner, gatewaySubID string, status types.GatewaySubscriptionStatus) *account.Account {
	acc := s.CreateAccount(owner)
	acc.Plan = types.AccountPlanPro
	acc.GatewaySubscriptionID = lo.ToPtr(gatewaySubID)
	s.Require().NoError(s.GetStores().AccountRepo.Update(s.GetContext(), acc))
	s.GetGateway().SetSubscriptionStatus(gatewaySubID, status)
	return acc
}

func (s *AccountPlanServiceSuite) plan(id string) types.AccountPlan {
	acc, err := s.GetStores().AccountRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return acc.Plan
}

func (s *AccountPlanServiceSuite) TestCheckPlanDowngrades() {
	active := s.proAccount("admin_active", "gsub_active", types.GatewaySubscriptionStatusActive)
	overdue := s.proAccount("admin_overdue", "gsub_overdue", types.GatewaySubscriptionStatusOverdue)
	cancelled := s.proAccount("admin_cancelled", "gsub_cancelled", types.GatewaySubscriptionStatusCancelled)
	broken := s.proAccount("admin_broken", "gsub_broken", "")
	free := s.CreateAccount("admin_free")

	resp, err := s.service.CheckPlanDowngrades(s.GetContext())
	s.Require().NoError(err)
	s.Equal(4, resp.Checked)
	s.ElementsMatch([]string{overdue.ID, cancelled.ID}, resp.Downgraded)
	s.Equal([]string{broken.ID}, resp.Failed)

	s.Equal(types.AccountPlanPro, s.plan(active.ID))
	s.Equal(types.AccountPlanFree, s.plan(overdue.ID))
	s.Equal(types.AccountPlanFree, s.plan(cancelled.ID))
	s.Equal(types.AccountPlanPro, s.plan(broken.ID))
	s.Equal(types.AccountPlanFree, s.plan(free.ID))

	notifications := s.GetStores().NotificationRepo.All()
	s.Require().Len(notifications, 2)
	for _, n := range notifications {
		s.Equal(types.NotificationTypePlanDowngraded, n.Type)
		s.Require().NotNil(n.TargetUserID)
	}

	// downgraded accounts are no longer checked
	resp, err = s.service.CheckPlanDowngrades(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, resp.Checked)
	s.Empty(resp.Downgraded)
}
