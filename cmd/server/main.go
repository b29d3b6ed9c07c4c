package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/config"
	"github.com/mamadbah2/backoffice/internal/repository/mongodb"
	"github.com/mamadbah2/backoffice/internal/repository/sheets"
	"github.com/mamadbah2/backoffice/internal/scheduler"
	"github.com/mamadbah2/backoffice/internal/server/handlers"
	"github.com/mamadbah2/backoffice/internal/server/router"
	authsvc "github.com/mamadbah2/backoffice/internal/service/auth"
	"github.com/mamadbah2/backoffice/internal/service/catalog"
	"github.com/mamadbah2/backoffice/internal/service/debt"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
	"github.com/mamadbah2/backoffice/internal/service/orders"
	reportingsvc "github.com/mamadbah2/backoffice/internal/service/reporting"
	"github.com/mamadbah2/backoffice/internal/telemetry"
	whatsappclient "github.com/mamadbah2/backoffice/pkg/clients/whatsapp"
	"github.com/mamadbah2/backoffice/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Development))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	shutdownTelemetry, err := telemetry.Setup(context.Background(), cfg.Telemetry, version)
	if err != nil {
		baseLogger.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			baseLogger.Error("failed to flush telemetry", zap.Error(err))
		}
	}()

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 20*time.Second)
	mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	cancelConnect()
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	stockLedger := inventory.NewLedger(mongoRepo)
	debtLedger := debt.NewLedger(mongoRepo)

	stockSvc := inventory.NewService(mongoRepo, stockLedger, cfg.Reporting.LowStockThreshold, baseLogger.Named("svc.inventory"))
	orderSvc := orders.NewService(mongoRepo, orders.NewLineProcessor(stockLedger), debtLedger, baseLogger.Named("svc.orders"))
	debtSvc := debt.NewService(mongoRepo, debtLedger, baseLogger.Named("svc.debt"))
	customerSvc := catalog.NewCustomerService(mongoRepo, baseLogger.Named("svc.customers"))
	productSvc := catalog.NewProductService(mongoRepo, stockLedger, baseLogger.Named("svc.products"))
	authSvc := authsvc.NewService(mongoRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.auth"))

	reportOpts := []reportingsvc.Option{reportingsvc.WithLocation(cfg.Reporting.Location())}
	if cfg.Sheets.Enabled() {
		spreadsheet, err := sheets.NewSpreadsheet(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to open report spreadsheet", zap.Error(err))
		}
		reportOpts = append(reportOpts, reportingsvc.WithExporter(sheets.NewReportExporter(spreadsheet, baseLogger.Named("export.sheets"))))
		baseLogger.Info("google sheets report export enabled")
	} else {
		baseLogger.Warn("google sheets credentials missing, report export disabled")
	}
	if cfg.WhatsApp.Enabled() {
		notifier := whatsappclient.NewReportNotifier(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.ReportRecipient, baseLogger.Named("notify.whatsapp"))
		reportOpts = append(reportOpts, reportingsvc.WithNotifier(notifier))
		baseLogger.Info("whatsapp report notifications enabled")
	}
	reportingSvc := reportingsvc.NewService(mongoRepo, mongoRepo, cfg.Reporting.LowStockThreshold, baseLogger.Named("svc.reporting"), reportOpts...)

	engine := router.New(router.Handlers{
		Orders:    handlers.NewOrderHandler(orderSvc, baseLogger.Named("handlers.orders")),
		Payments:  handlers.NewPaymentHandler(debtSvc, baseLogger.Named("handlers.payments")),
		Stock:     handlers.NewStockHandler(stockSvc, baseLogger.Named("handlers.stock")),
		Catalog:   handlers.NewCatalogHandler(customerSvc, productSvc, baseLogger.Named("handlers.catalog")),
		Dashboard: handlers.NewDashboardHandler(reportingSvc, baseLogger.Named("handlers.dashboard")),
		Users:     handlers.NewUserHandler(authSvc, baseLogger.Named("handlers.users")),
	}, authSvc, router.Options{
		Env:         cfg.Server.Env,
		ServiceName: cfg.Telemetry.ServiceName,
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, stockSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		})(engine),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
