package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"buildline/config"
	"buildline/internal/domain"
	"buildline/internal/handler"
	"buildline/internal/middleware"
	"buildline/internal/repository"
	"buildline/internal/service"
	"buildline/internal/ws"
	"buildline/pkg/chain"
	"buildline/pkg/checkout"
	"buildline/pkg/tracker"
)

func Setup(cfg *config.Config, db *gorm.DB, tc tracker.Client, co *checkout.Client, cc *chain.Client, queueHub *ws.QueueHub) (*gin.Engine, *service.QueueService) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	// Services
	dispatchSvc := service.NewDispatchService(tc, requestRepo, paymentRepo)
	queueSvc := service.NewQueueService(tc, cfg.Queue.ThroughputPerHour, nil)

	// Handlers
	submitHandler := handler.NewSubmitHandler(cfg, paymentRepo, co)
	checkoutWebhookHandler := handler.NewCheckoutWebhookHandler(cfg, paymentRepo, dispatchSvc)
	tokenHandler := handler.NewTokenVerifyHandler(cfg, paymentRepo, requestRepo, cc, dispatchSvc)
	queueHandler := handler.NewQueueHandler(queueSvc)
	adminHandler := handler.NewAdminHandler(cfg, paymentRepo, requestRepo, dispatchSvc)

	authMw := middleware.AuthRequired(&cfg.Auth)
	rateMw := middleware.RateLimit(middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow))

	api := r.Group("/api/v1")
	{
		api.POST("/requests", rateMw, submitHandler.Submit)
		api.GET("/queue", queueHandler.Get)
		api.POST("/payments/token/verify", rateMw, tokenHandler.Verify)

		// Webhooks authenticate by signature, never rate limited.
		api.POST("/webhooks/checkout", checkoutWebhookHandler.Handle)

		admin := api.Group("/admin")
		{
			admin.POST("/login", rateMw, adminHandler.Login)
			admin.GET("/payments/:id", authMw, middleware.RequireRole(domain.RoleAdmin), adminHandler.GetPayment)
			admin.POST("/payments/:id/dispatch", authMw, middleware.RequireRole(domain.RoleAdmin), adminHandler.RetryDispatch)
		}
	}

	r.GET("/ws/queue", ws.UpgradeQueueWS(queueHub))

	return r, queueSvc
}
