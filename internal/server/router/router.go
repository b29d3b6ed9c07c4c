package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/service/auth"
	"github.com/mamadbah2/backoffice/internal/server/handlers"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	claimsKey       = "claims"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Handlers groups every HTTP handler mounted by New.
type Handlers struct {
	Orders    *handlers.OrderHandler
	Payments  *handlers.PaymentHandler
	Stock     *handlers.StockHandler
	Catalog   *handlers.CatalogHandler
	Dashboard *handlers.DashboardHandler
	Users     *handlers.UserHandler
}

// Options configures the engine.
type Options struct {
	Env         string
	ServiceName string
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, verifier TokenVerifier, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/users/register", h.Users.Register)
	api.POST("/users/login", h.Users.Login)

	secured := api.Group("")
	secured.Use(authMiddleware(verifier))

	secured.GET("/users/list", h.Users.List)
	secured.POST("/users/logout", h.Users.Logout)

	customers := secured.Group("/customers")
	customers.GET("", h.Catalog.ListCustomers)
	customers.GET("/all", h.Catalog.AllCustomers)
	customers.GET("/:id", h.Catalog.GetCustomer)
	customers.POST("", h.Catalog.CreateCustomer)
	customers.PUT("/:id", h.Catalog.UpdateCustomer)
	customers.DELETE("/:id", h.Catalog.DeleteCustomer)

	products := secured.Group("/products")
	products.GET("", h.Catalog.ListProducts)
	products.GET("/:code", h.Catalog.GetProduct)
	products.POST("", h.Catalog.CreateProduct)
	products.PUT("/:id", h.Catalog.UpdateProduct)
	products.DELETE("/:id", h.Catalog.DeleteProduct)

	orders := secured.Group("/orders")
	orders.GET("", h.Orders.List)
	orders.GET("/:id", h.Orders.Get)
	orders.POST("", h.Orders.Create)
	orders.PUT("/:id", h.Orders.Update)
	orders.DELETE("/:id", h.Orders.Delete)

	payments := secured.Group("/payments")
	payments.GET("", h.Payments.List)
	payments.POST("", h.Payments.Record)
	payments.GET("/customer/:customerId", h.Payments.CustomerPayments)
	payments.POST("/pay-order-debt", h.Payments.PayOrderDebt)
	payments.POST("/pay-multiple-orders", h.Payments.PayMultipleOrders)

	debts := secured.Group("/debts")
	debts.GET("/customer-debts", h.Payments.CustomerDebts)
	debts.GET("/customer-debt/:customerId", h.Payments.CustomerDebt)
	debts.POST("/order-debts", h.Payments.OrderDebts)

	stocks := secured.Group("/stocks")
	stocks.GET("", h.Stock.Levels)
	stocks.POST("/update-stats", h.Stock.Adjust)
	stocks.GET("/history/:productCode", h.Stock.History)
	stocks.GET("/report", h.Stock.Report)
	stocks.POST("/reconcile", h.Stock.Reconcile)

	dashboard := secured.Group("/dashboard")
	dashboard.GET("/stats", h.Dashboard.Stats)
	dashboard.GET("/inventory", h.Dashboard.Inventory)
	dashboard.GET("/customers", h.Dashboard.Customers)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// authMiddleware rejects requests without a valid bearer token.
func authMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
