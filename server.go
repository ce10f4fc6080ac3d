package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/middlewares"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"bitbucket.org/mmdatafocus/backoffice_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer = otel.Tracer("backoffice-backend")

func main() {
	godotenv.Load()
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	if os.Getenv("GO_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(correlationIdMiddleware())
	r.Use(tracingMiddleware())
	r.Use(corsMiddleware())
	r.Use(readinessMiddleware())

	// Liveness never depends on downstream connections.
	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	registerRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Start listening before connecting to dependencies so the platform's
	// health checks see an open port immediately. The readiness middleware
	// returns 503 until the database and redis are up.
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening on :" + port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()

	if os.Getenv("SKIP_MIGRATIONS") != "1" {
		if err := models.MigrateTable(db); err != nil {
			logger.Fatal("migration failed: " + err.Error())
		}
	}

	// Reads inside posting transactions must not see other transactions'
	// uncommitted stock; READ COMMITTED plus the explicit locks is enough.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		if attempt >= 5 {
			logger.Warn("could not set isolation level: " + err.Error())
			break
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	dispatcherCtx, cancelDispatcher := context.WithCancel(rootCtx)
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	select {
	case err := <-serverErrCh:
		logger.Fatal("server failed: " + err.Error())
	case <-rootCtx.Done():
	}

	logger.Info("shutting down")
	cancelDispatcher()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown: " + err.Error())
	}
}

func registerRoutes(r *gin.Engine) {
	// Creating a business is the bootstrap call; no tenant exists yet, so it
	// cannot sit behind the x-business-id requirement.
	r.POST("/api/businesses", createBusinessHandler)

	api := r.Group("/api")
	api.Use(middlewares.TenantMiddleware())

	api.POST("/products", createProductHandler)
	api.PUT("/products/:id", updateProductHandler)
	api.GET("/products/:id", getProductHandler)
	api.GET("/products", listProductsHandler)

	api.POST("/warehouses", createWarehouseHandler)
	api.GET("/warehouses", listWarehousesHandler)

	api.POST("/customers", createCustomerHandler)
	api.PUT("/customers/:id", updateCustomerHandler)
	api.GET("/customers/:id", getCustomerHandler)

	api.POST("/suppliers", createSupplierHandler)
	api.GET("/suppliers/:id", getSupplierHandler)

	api.POST("/orders", createOrderHandler)
	api.PUT("/orders/:id", updateOrderHandler)
	api.GET("/orders/:id", getOrderHandler)
	api.POST("/orders/:id/complete", completeOrderHandler)
	api.POST("/orders/:id/status", orderStatusHandler)
	api.POST("/orders/:id/payments", orderPaymentHandler)
	api.POST("/orders/pos", posOrderHandler)

	api.POST("/returns", createSalesReturnHandler)
	api.GET("/returns/:id", getSalesReturnHandler)

	api.POST("/quotations", createQuotationHandler)
	api.PUT("/quotations/:id", updateQuotationHandler)
	api.GET("/quotations/:id", getQuotationHandler)
	api.DELETE("/quotations/:id", deleteQuotationHandler)
	api.POST("/quotations/:id/status", quotationStatusHandler)
	api.POST("/quotations/:id/convert", convertQuotationHandler)

	api.POST("/purchase-orders", createPurchaseOrderHandler)
	api.PUT("/purchase-orders/:id", updatePurchaseOrderHandler)
	api.GET("/purchase-orders/:id", getPurchaseOrderHandler)
	api.DELETE("/purchase-orders/:id", deletePurchaseOrderHandler)
	api.POST("/purchase-orders/:id/status", purchaseOrderStatusHandler)
	api.POST("/purchase-orders/:id/payments", purchaseOrderPaymentHandler)

	api.GET("/inventory/stock", stockQueryHandler)
	api.GET("/inventory/low-stock", lowStockHandler)
	api.POST("/inventory/adjustments", createAdjustmentHandler)
	api.POST("/inventory/transfers", createTransferHandler)
	api.GET("/inventory/movements", listMovementsHandler)

	api.POST("/boms", saveBomHandler)
	api.GET("/boms/:id", getBomHandler)
	api.DELETE("/boms/:id", deleteBomHandler)

	api.POST("/work-orders", createWorkOrderHandler)
	api.GET("/work-orders/:id", getWorkOrderHandler)
	api.POST("/work-orders/:id/start", startWorkOrderHandler)
	api.POST("/work-orders/:id/steps", workOrderStepsHandler)
	api.POST("/work-orders/:id/complete", completeWorkOrderHandler)

	api.POST("/journals", createJournalHandler)
	api.GET("/journals/:id", getJournalHandler)
	api.GET("/accounts", listAccountsHandler)

	api.POST("/ops/outbox/revive", outboxReviveHandler)
}

func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		ctx, span := tracer.Start(c.Request.Context(),
			c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

func correlationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("x-correlation-id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("x-correlation-id", correlationId)
		c.Next()
	}
}

// readinessMiddleware returns 503 for all routes except /healthz until the
// database and redis connections exist.
func readinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "starting up",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "x-business-id", "x-user-id", "x-user-name", "x-correlation-id", "x-idempotency-key"},
		ExposeHeaders:    []string{"x-correlation-id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else if os.Getenv("GO_ENV") == "production" {
		// Locked down unless origins are configured.
		cfg.AllowOrigins = []string{}
	} else {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cors.New(cfg)
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request")
		} else {
			entry.Info("request")
		}
	}
}
