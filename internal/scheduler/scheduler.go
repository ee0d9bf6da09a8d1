package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/pyroscope"
	"github.com/streamshare/streamshare/internal/sentry"
	"github.com/streamshare/streamshare/internal/service"
	"github.com/streamshare/streamshare/internal/types"
	"go.uber.org/fx"
)

const (
	JobBillingCycle  = "billing_cycle"
	JobExpireBatches = "expire_batches"
	JobPlanCheck     = "plan_check"
)

// Scheduler runs the recurring billing jobs on cron schedules. Running it on several
// replicas is safe: the billing cycle serializes itself with an advisory lock.
type Scheduler struct {
	cron        *cron.Cron
	cfg         *config.Configuration
	billing     service.BillingService
	accountPlan service.AccountPlanService
	sentry      *sentry.Service
	pyroscope   *pyroscope.Service
	logger      *logger.Logger
}

func NewScheduler(
	cfg *config.Configuration,
	billing service.BillingService,
	accountPlan service.AccountPlanService,
	sentry *sentry.Service,
	pyroscope *pyroscope.Service,
	logger *logger.Logger,
) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		cfg:         cfg,
		billing:     billing,
		accountPlan: accountPlan,
		sentry:      sentry,
		pyroscope:   pyroscope,
		logger:      logger,
	}
}

// RegisterHooks starts the scheduler with the application and waits for running jobs on stop
func RegisterHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-s.Stop().Done():
			case <-ctx.Done():
				s.logger.Warn("scheduler stopped before running jobs finished")
			}
			return nil
		},
	})
}

// Start registers every job with a non-empty schedule and starts the cron loop
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{JobBillingCycle, s.cfg.Billing.CycleSchedule, s.runBillingCycle},
		{JobExpireBatches, s.cfg.Billing.BatchExpirySchedule, s.runExpireBatches},
		{JobPlanCheck, s.cfg.Billing.PlanCheckSchedule, s.runPlanCheck},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			s.logger.Infow("job has no schedule, not registering", "job", job.name)
			continue
		}

		name, run := job.name, job.run
		if _, err := s.cron.AddFunc(job.schedule, func() { s.RunJob(context.Background(), name, run) }); err != nil {
			return ierr.WithError(err).
				WithHintf("Invalid cron schedule for %s: %q", name, job.schedule).
				Mark(ierr.ErrValidation)
		}
		s.logger.Infow("scheduled job", "job", name, "schedule", job.schedule)
	}

	s.cron.Start()
	return nil
}

// Stop stops scheduling new runs. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunJob runs one job with its own request id, tracing span and profiling labels.
// Errors are logged and reported, never returned.
func (s *Scheduler) RunJob(ctx context.Context, name string, run func(context.Context) error) {
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	ctx = types.WithActor(ctx, types.SystemActor())

	span, ctx := s.sentry.StartJobSpan(ctx, name)
	if span != nil {
		defer span.Finish()
	}

	s.pyroscope.TagWrapper(ctx, map[string]string{"job": name}, func(ctx context.Context) {
		started := time.Now()
		err := run(ctx)
		if err != nil {
			s.logger.Errorw("scheduled job failed",
				"job", name,
				"duration", time.Since(started),
				"error", err,
			)
			s.sentry.CaptureException(err, map[string]string{"job": name})
			return
		}
		s.logger.Infow("scheduled job finished",
			"job", name,
			"duration", time.Since(started),
		)
	})
}

func (s *Scheduler) runBillingCycle(ctx context.Context) error {
	resp, err := s.billing.ProcessBillingCycle(ctx, &dto.BillingCycleRequest{})
	if err != nil {
		return err
	}
	if resp.Skipped {
		s.logger.Infow("billing cycle skipped, another replica holds the lock")
	}
	return nil
}

func (s *Scheduler) runExpireBatches(ctx context.Context) error {
	resp, err := s.billing.ExpireBatches(ctx)
	if err != nil {
		return err
	}
	if len(resp.Failed) > 0 {
		return ierr.NewErrorf("%d batches could not be expired", len(resp.Failed)).
			WithReportableDetails(map[string]any{
				"batch_ids": resp.Failed,
			}).
			Mark(ierr.ErrSystem)
	}
	return nil
}

func (s *Scheduler) runPlanCheck(ctx context.Context) error {
	resp, err := s.accountPlan.CheckPlanDowngrades(ctx)
	if err != nil {
		return err
	}
	if len(resp.Failed) > 0 {
		s.logger.Warnw("some accounts could not be checked", "account_ids", resp.Failed)
	}
	return nil
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
