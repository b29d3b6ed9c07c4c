package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

const dateLayout = "2006-01-02"

// Exporter copies a daily report to an external destination.
type Exporter interface {
	ExportDailyReport(ctx context.Context, report models.DailyReport) error
}

// Notifier delivers a text message to the business owner.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Service computes the dashboard figures and the end-of-day report.
type Service struct {
	store    repository.Reader
	reports  repository.ReportStore
	exporter Exporter
	notifier Notifier
	lowStock int64
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithExporter sends every saved daily report to e.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithNotifier sends the text of every saved daily report through n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLocation sets the time zone that delimits days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService wires a new reporting service instance.
func NewService(store repository.Reader, reports repository.ReportStore, lowStockThreshold int64, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		reports:  reports,
		lowStock: lowStockThreshold,
		loc:      time.UTC,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateDailyReport computes the snapshot of the day containing day.
func (s *Service) GenerateDailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	start, end := s.dayBounds(day)

	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{From: start, To: end})
	if err != nil {
		return nil, apperr.Internal(err, "load orders of the day")
	}
	profit, err := s.profitOf(ctx, orders)
	if err != nil {
		return nil, err
	}

	collected, err := s.store.FindPayments(ctx, repository.PaymentFilter{
		Types: []models.PaymentType{models.PaymentDebtCollected},
		From:  start,
		To:    end,
	})
	if err != nil {
		return nil, apperr.Internal(err, "load collected debts")
	}
	outstanding, err := s.outstandingDebt(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}

	report := &models.DailyReport{
		Date:            start,
		OrdersCount:     len(orders),
		Revenue:         decimal.Zero,
		Profit:          profit,
		DebtCollected:   decimal.Zero,
		OutstandingDebt: outstanding,
		CreatedAt:       s.now().UTC(),
	}
	for _, o := range orders {
		report.Revenue = report.Revenue.Add(o.Total)
	}
	for _, p := range collected {
		report.DebtCollected = report.DebtCollected.Add(p.Amount)
	}
	for _, p := range products {
		if p.NewStock < s.lowStock {
			report.LowStockCount++
		}
	}
	return report, nil
}

// PublishDailyReport generates, stores and distributes the report of the day containing day.
// Export and notification failures do not undo the stored report; they are returned joined.
func (s *Service) PublishDailyReport(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	report, err := s.GenerateDailyReport(ctx, day)
	if err != nil {
		return nil, err
	}
	if err := s.reports.SaveDailyReport(ctx, *report); err != nil {
		return nil, apperr.Internal(err, "save daily report")
	}

	var errs []error
	if s.exporter != nil {
		if err := s.exporter.ExportDailyReport(ctx, *report); err != nil {
			errs = append(errs, fmt.Errorf("export daily report: %w", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, FormatDailyReport(*report)); err != nil {
			errs = append(errs, fmt.Errorf("notify daily report: %w", err))
		}
	}

	s.logger.Info("daily report published",
		zap.String("date", report.Date.Format(dateLayout)),
		zap.Int("orders", report.OrdersCount),
		zap.String("revenue", report.Revenue.String()))
	return report, errors.Join(errs...)
}

// FormatDailyReport renders a report as a short text message.
func FormatDailyReport(r models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s\n", r.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Orders: %d\n", r.OrdersCount)
	fmt.Fprintf(&b, "Revenue: %s\n", r.Revenue.StringFixed(2))
	fmt.Fprintf(&b, "Profit: %s\n", r.Profit.StringFixed(2))
	fmt.Fprintf(&b, "Debt collected: %s\n", r.DebtCollected.StringFixed(2))
	fmt.Fprintf(&b, "Outstanding debt: %s\n", r.OutstandingDebt.StringFixed(2))
	fmt.Fprintf(&b, "Products low on stock: %d", r.LowStockCount)
	return b.String()
}

func (s *Service) dayBounds(day time.Time) (time.Time, time.Time) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

func (s *Service) profitOf(ctx context.Context, orders []models.Order) (decimal.Decimal, error) {
	if len(orders) == 0 {
		return decimal.Zero, nil
	}
	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lines, err := s.store.FindLines(ctx, repository.LineFilter{OrderIDs: ids})
	if err != nil {
		return decimal.Zero, apperr.Internal(err, "load order lines")
	}
	profit := decimal.Zero
	for _, l := range lines {
		profit = profit.Add(l.Profit)
	}
	return profit, nil
}

func (s *Service) outstandingDebt(ctx context.Context) (decimal.Decimal, error) {
	unpaid, err := s.store.FindOrders(ctx, repository.OrderFilter{UnpaidOnly: true})
	if err != nil {
		return decimal.Zero, apperr.Internal(err, "load unpaid orders")
	}
	total := decimal.Zero
	for _, o := range unpaid {
		total = total.Add(o.RemainingDebt)
	}
	return total, nil
}
