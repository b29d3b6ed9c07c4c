package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/backoffice/internal/config"
	"github.com/mamadbah2/backoffice/internal/domain/models"
)

const (
	dailyReportRange     = "DailyReports!A:H"
	dailyReportDateRange = "DailyReports!A:A"
	dateLayout           = "2006-01-02"
)

// RowStore appends report rows to a spreadsheet and reads back the columns
// needed to skip days that were already exported.
type RowStore interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// Spreadsheet is the RowStore of one Google spreadsheet.
type Spreadsheet struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

// NewSpreadsheet opens the report spreadsheet with the service account credentials of cfg.
func NewSpreadsheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Spreadsheet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("report spreadsheet id is not configured")
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("open report spreadsheet: %w", err)
	}
	return &Spreadsheet{values: service.Spreadsheets.Values, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

// WriteRow appends one report row below the last filled row of sheetRange.
func (s *Spreadsheet) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("empty sheet range")
	}

	_, err := s.values.Append(s.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append report row to %s: %w", sheetRange, err)
	}

	s.logger.Debug("report row appended", zap.String("range", sheetRange), zap.Int("cells", len(values)))
	return nil
}

// ReadRange returns the cells of sheetRange, row by row.
func (s *Spreadsheet) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("empty sheet range")
	}
	resp, err := s.values.Get(s.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read report range %s: %w", sheetRange, err)
	}
	return resp.Values, nil
}

// ReportExporter appends daily reports as rows of the DailyReports sheet.
type ReportExporter struct {
	repo   RowStore
	logger *zap.Logger
}

// NewReportExporter builds an exporter writing through repo.
func NewReportExporter(repo RowStore, logger *zap.Logger) *ReportExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExporter{repo: repo, logger: logger}
}

// ExportDailyReport appends the report unless a row for its date already exists.
func (e *ReportExporter) ExportDailyReport(ctx context.Context, report models.DailyReport) error {
	date := report.Date.Format(dateLayout)

	rows, err := e.repo.ReadRange(ctx, dailyReportDateRange)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) > 0 && fmt.Sprint(row[0]) == date {
			e.logger.Debug("daily report already exported", zap.String("date", date))
			return nil
		}
	}

	return e.repo.WriteRow(ctx, dailyReportRange, ReportRow(report))
}

// ReportRow lays a report out as sheet cells.
func ReportRow(report models.DailyReport) []interface{} {
	return []interface{}{
		report.Date.Format(dateLayout),
		report.OrdersCount,
		report.Revenue.StringFixed(2),
		report.Profit.StringFixed(2),
		report.DebtCollected.StringFixed(2),
		report.OutstandingDebt.StringFixed(2),
		report.LowStockCount,
		report.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
