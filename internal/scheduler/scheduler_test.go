package scheduler

import (
	"context"
	"testing"

	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBilling struct {
	cycles  int
	expired int
	actor   types.Actor
	failed  []string
}

func (f *fakeBilling) ProcessBillingCycle(ctx context.Context, req *dto.BillingCycleRequest) (*dto.BillingCycleResponse, error) {
	f.cycles++
	f.actor, _ = types.GetActor(ctx)
	return &dto.BillingCycleResponse{}, nil
}

func (f *fakeBilling) ExpireBatches(ctx context.Context) (*dto.ExpireBatchesResponse, error) {
	f.expired++
	return &dto.ExpireBatchesResponse{Failed: f.failed}, nil
}

type fakeAccountPlan struct {
	checks int
}

func (f *fakeAccountPlan) CheckPlanDowngrades(ctx context.Context) (*dto.PlanCheckResponse, error) {
	f.checks++
	return &dto.PlanCheckResponse{}, nil
}

func newTestScheduler(cfg *config.Configuration) (*Scheduler, *fakeBilling, *fakeAccountPlan) {
	billing := &fakeBilling{}
	plans := &fakeAccountPlan{}
	return NewScheduler(cfg, billing, plans, nil, nil, logger.NewNoopLogger()), billing, plans
}

func TestRunJob(t *testing.T) {
	s, billing, plans := newTestScheduler(config.GetDefaultConfig())
	ctx := context.Background()

	s.RunJob(ctx, JobBillingCycle, s.runBillingCycle)
	s.RunJob(ctx, JobPlanCheck, s.runPlanCheck)

	assert.Equal(t, 1, billing.cycles)
	assert.True(t, billing.actor.IsSystem())
	assert.Equal(t, 1, plans.checks)
}

func TestRunExpireBatchesReportsFailures(t *testing.T) {
	s, billing, _ := newTestScheduler(config.GetDefaultConfig())

	assert.NoError(t, s.runExpireBatches(context.Background()))

	billing.failed = []string{"lote_1"}
	err := s.runExpireBatches(context.Background())
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrSystem))

	// RunJob swallows the error
	s.RunJob(context.Background(), JobExpireBatches, s.runExpireBatches)
	assert.Equal(t, 3, billing.expired)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Billing.CycleSchedule = "every day at six"

	s, _, _ := newTestScheduler(cfg)
	err := s.Start()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestStartAndStop(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Billing.PlanCheckSchedule = ""

	s, _, _ := newTestScheduler(cfg)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	<-s.Stop().Done()
}
