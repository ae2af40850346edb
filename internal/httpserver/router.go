package httpserver

import (
	"context"
	"time"

	"order-engine/internal/domain"
	"order-engine/internal/logging"
	"order-engine/internal/metrics"
	"order-engine/internal/service/order"
	"order-engine/internal/service/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type orderService interface {
	Create(ctx context.Context, in order.CreateInput) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, f order.ListFilter) ([]domain.Order, error)
	Ship(ctx context.Context, orderID string) (*domain.Order, error)
	Deliver(ctx context.Context, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string) (*domain.Order, error)
}

type paymentService interface {
	Begin(ctx context.Context, orderID string) (string, error)
	HandleCallback(ctx context.Context, cb payment.Callback) (payment.Result, error)
}

// Deps are the collaborators mounted on the router.
type Deps struct {
	OrderSvc    orderService
	PaymentSvc  paymentService
	Metrics     *metrics.Metrics
	Redirects   PaymentRedirects
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps) *gin.Engine {
	logger = logging.OrNop(logger)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), requestMetrics(deps.Metrics))
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	oh := &orderHandlers{svc: deps.OrderSvc}
	router.POST("/orders", oh.create)
	router.GET("/orders", oh.list)
	router.GET("/orders/:orderId", oh.get)
	router.POST("/orders/:orderId/ship", oh.transition(deps.OrderSvc.Ship))
	router.POST("/orders/:orderId/deliver", oh.transition(deps.OrderSvc.Deliver))
	router.POST("/orders/:orderId/cancel", oh.transition(deps.OrderSvc.Cancel))
	router.GET("/users/:userId/orders", oh.listByUser)

	ph := &paymentHandlers{svc: deps.PaymentSvc, redirects: deps.Redirects}
	router.POST("/orders/:orderId/payment", ph.begin)
	router.GET("/payments/callback", ph.callback)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		logger.Info("http request", fields...)
	}
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
