package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/config"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

const jobTimeout = 2 * time.Minute

// ReportPublisher produces the end-of-day report.
type ReportPublisher interface {
	PublishDailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error)
}

// StockReconciler rebuilds product counters from the movement log.
type StockReconciler interface {
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileResult, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	reports    ReportPublisher
	reconciler StockReconciler
	cfg        config.ReportingConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a scheduler running its jobs in the configured time zone.
func NewScheduler(cfg config.ReportingConfig, reports ReportPublisher, reconciler StockReconciler, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Standard 5 field cron specs, evaluated in the reporting time zone.
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:       c,
		reports:    reports,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("report_schedule", s.cfg.CronSchedule),
		zap.String("reconcile_schedule", s.cfg.ReconcileCronSchedule),
		zap.String("timezone", s.cfg.Timezone))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.publishDailyReport); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReconcileCronSchedule, s.reconcileStock); err != nil {
		return fmt.Errorf("schedule stock reconcile: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) publishDailyReport() {
	s.logger.Info("generating daily report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.reports.PublishDailyReport(ctx, s.now())
	if report == nil {
		s.logger.Error("failed to generate daily report", zap.Error(err))
		return
	}
	if err != nil {
		s.logger.Warn("daily report saved but not fully distributed", zap.Error(err))
		return
	}
	s.logger.Info("daily report published successfully")
}

func (s *Scheduler) reconcileStock() {
	s.logger.Info("reconciling stock counters")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("stock reconcile failed", zap.Error(err))
		return
	}

	changed := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
	}
	s.logger.Info("stock reconcile finished",
		zap.Int("products", len(results)),
		zap.Int("corrected", changed))
}
