package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/backoffice/internal/config"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

type fakePublisher struct {
	days   []time.Time
	report *models.DailyReport
	err    error
}

func (f *fakePublisher) PublishDailyReport(_ context.Context, day time.Time) (*models.DailyReport, error) {
	f.days = append(f.days, day)
	return f.report, f.err
}

type fakeReconciler struct {
	results []inventory.ReconcileResult
}

func (f *fakeReconciler) ReconcileAll(context.Context) ([]inventory.ReconcileResult, error) {
	return f.results, nil
}

func testConfig() config.ReportingConfig {
	return config.ReportingConfig{
		CronSchedule:          "0 20 * * *",
		ReconcileCronSchedule: "0 2 * * *",
		Timezone:              "UTC",
	}
}

func newObserved(publisher ReportPublisher, reconciler StockReconciler) (*Scheduler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(testConfig(), publisher, reconciler, zap.New(core))
	return s, logs
}

func TestPublishDailyReportJob(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	publisher := &fakePublisher{report: &models.DailyReport{}}
	s, logs := newObserved(publisher, &fakeReconciler{})
	s.now = func() time.Time { return now }

	s.publishDailyReport()

	assert.Equal(t, []time.Time{now}, publisher.days)
	assert.Equal(t, 1, logs.FilterMessage("daily report published successfully").Len())
}

func TestPublishDailyReportJobFailures(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("mongo down")}
	s, logs := newObserved(publisher, &fakeReconciler{})

	s.publishDailyReport()
	assert.Equal(t, 1, logs.FilterMessage("failed to generate daily report").Len())

	publisher.report = &models.DailyReport{}
	publisher.err = errors.New("export daily report: quota")
	s.publishDailyReport()
	assert.Equal(t, 1, logs.FilterMessage("daily report saved but not fully distributed").Len())
}

func TestReconcileStockJob(t *testing.T) {
	reconciler := &fakeReconciler{results: []inventory.ReconcileResult{{Changed: true}, {}, {Changed: true}}}
	s, logs := newObserved(&fakePublisher{}, reconciler)

	s.reconcileStock()

	entries := logs.FilterMessage("stock reconcile finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["products"])
	assert.Equal(t, int64(2), entries[0].ContextMap()["corrected"])
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CronSchedule = "every evening"
	s := NewScheduler(cfg, &fakePublisher{}, &fakeReconciler{}, nil)

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(testConfig(), &fakePublisher{}, &fakeReconciler{}, nil)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
