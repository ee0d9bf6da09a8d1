package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/domain/account"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/streamshare/streamshare/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the in-memory repositories used by service tests
type Stores struct {
	SubscriptionRepo *InMemorySubscriptionStore
	ChargeRepo       *InMemoryChargeStore
	BatchRepo        *InMemoryBatchStore
	NotificationRepo *InMemoryNotificationStore
	AccountRepo      *InMemoryAccountStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	stores     Stores
	db         *MockPostgresClient
	gateway    *MockGateway
	storage    *MockStorage
	dispatcher *MockDispatcher
	logger     *logger.Logger
	config     *config.Configuration
	now        time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNoopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	subs := NewInMemorySubscriptionStore()
	s.stores = Stores{
		SubscriptionRepo: subs,
		ChargeRepo:       NewInMemoryChargeStore(subs),
		BatchRepo:        NewInMemoryBatchStore(),
		NotificationRepo: NewInMemoryNotificationStore(),
		AccountRepo:      NewInMemoryAccountStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.gateway = NewMockGateway()
	s.storage = NewMockStorage()
	s.dispatcher = NewMockDispatcher()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubscriptionRepo.Clear()
	s.stores.ChargeRepo.Clear()
	s.stores.BatchRepo.Clear()
	s.stores.NotificationRepo.Clear()
	s.stores.AccountRepo.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetGateway() *MockGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetStorage() *MockStorage {
	return s.storage
}

func (s *BaseServiceTestSuite) GetDispatcher() *MockDispatcher {
	return s.dispatcher
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// CreateAccount seeds an account administered by ownerUserID
func (s *BaseServiceTestSuite) CreateAccount(ownerUserID string) *account.Account {
	a := &account.Account{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:        "Conta " + ownerUserID,
		OwnerUserID: ownerUserID,
		Email:       lo.ToPtr(ownerUserID + "@admin.test"),
		Plan:        types.AccountPlanFree,
		Currency:    types.DefaultCurrency,
		BaseModel:   types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.stores.AccountRepo.Create(s.ctx, a))
	return a
}

// CreateParticipant seeds a participant. A non-empty userID gives the participant a login.
func (s *BaseServiceTestSuite) CreateParticipant(accountID, name, userID string) *subscription.Participant {
	p := &subscription.Participant{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PARTICIPANT),
		AccountID: accountID,
		UserID:    lo.EmptyableToPtr(userID),
		Name:      name,
		Email:     lo.ToPtr(types.GenerateUUID() + "@participant.test"),
		Phone:     lo.ToPtr("+55 11 90000-0000"),
	}
	s.stores.SubscriptionRepo.AddParticipant(p)
	return p
}

func (s *BaseServiceTestSuite) CreateStreaming(accountID, name string) *subscription.Streaming {
	st := &subscription.Streaming{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STREAMING),
		AccountID: accountID,
		Name:      name,
		Currency:  types.DefaultCurrency,
	}
	s.stores.SubscriptionRepo.AddStreaming(st)
	return st
}

// SubscriptionOption customizes a seeded subscription
type SubscriptionOption func(*subscription.Subscription)

// CreateSubscription seeds an ativa monthly auto-renewing subscription
func (s *BaseServiceTestSuite) CreateSubscription(p *subscription.Participant, st *subscription.Streaming, monthly string, opts ...SubscriptionOption) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		AccountID:          p.AccountID,
		ParticipantID:      p.ID,
		StreamingID:        st.ID,
		MonthlyValue:       decimal.RequireFromString(monthly),
		Frequency:          types.BillingFrequencyMonthly,
		StartDate:          s.now,
		AutoRenew:          true,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BaseModel:          types.GetDefaultBaseModel(),
	}
	for _, opt := range opts {
		opt(sub)
	}
	s.Require().NoError(s.stores.SubscriptionRepo.Create(s.ctx, sub))

	out, err := s.stores.SubscriptionRepo.Get(s.ctx, sub.ID)
	s.Require().NoError(err)
	return out
}

// ChargeOption customizes a seeded charge
type ChargeOption func(*charge.Charge)

// CreateCharge seeds a charge for the period [start, end] due at start
func (s *BaseServiceTestSuite) CreateCharge(sub *subscription.Subscription, value string, start, end time.Time, status types.ChargeStatus, opts ...ChargeOption) *charge.Charge {
	c := &charge.Charge{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		SubscriptionID:    sub.ID,
		AccountID:         sub.AccountID,
		Value:             decimal.RequireFromString(value),
		PeriodStart:       start,
		PeriodEnd:         end,
		DueDate:           start,
		ChargeStatus:      status,
		PaymentMethod:     types.PaymentMethodPix,
		ExternalReference: types.GenerateUUID(),
		BaseModel:         types.GetDefaultBaseModel(),
	}
	if status == types.ChargeStatusPaid {
		c.PaidAt = lo.ToPtr(start)
	}
	for _, opt := range opts {
		opt(c)
	}
	s.Require().NoError(s.stores.ChargeRepo.Create(s.ctx, c))

	out, err := s.stores.ChargeRepo.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	return out
}

// MustGetCharge reloads a charge from the store
func (s *BaseServiceTestSuite) MustGetCharge(id string) *charge.Charge {
	c, err := s.stores.ChargeRepo.Get(s.ctx, id)
	s.Require().NoError(err)
	return c
}

// MustGetSubscription reloads a subscription from the store
func (s *BaseServiceTestSuite) MustGetSubscription(id string) *subscription.Subscription {
	sub, err := s.stores.SubscriptionRepo.Get(s.ctx, id)
	s.Require().NoError(err)
	return sub
}
