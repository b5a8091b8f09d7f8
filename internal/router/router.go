package router

import (
	"net/http"
	"time"

	"draftly/config"
	"draftly/internal/handler"
	"draftly/internal/middleware"
	"draftly/internal/repository"
	"draftly/internal/service"
	"draftly/pkg/gateway"
	"draftly/pkg/mail"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, gw gateway.Client, mailer mail.Sender, log *logrus.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo, tokenRepo, mailer, log)
	billingSvc := service.NewBillingService(db, ledgerRepo, log)
	reconciler := service.NewReconciler(billingSvc, userRepo, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, userRepo, auditRepo, log)
	oauthHandler := handler.NewOAuthHandler(cfg, authSvc, auditRepo, log)
	billingHandler := handler.NewBillingHandler(billingSvc, userRepo, gw, cfg, log)
	webhookHandler := handler.NewPaymentWebhookHandler(reconciler, auditRepo, cfg, log)

	authMw := middleware.AuthRequired(&cfg.JWT, tokenRepo)
	credentialLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(10, time.Minute))
	webhookLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(120, time.Minute))
	fundingLimit := middleware.RateLimitByUser(middleware.NewInMemoryRateLimiter(30, time.Minute))

	api := r.Group("/api")
	{
		api.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", credentialLimit, authHandler.Register)
			authGroup.POST("/login", credentialLimit, authHandler.Login)
			authGroup.POST("/logout", authMw, authHandler.Logout)
			authGroup.POST("/logout/refresh", authHandler.LogoutRefresh)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/me", authMw, authHandler.Me)
			authGroup.POST("/forgot-password", credentialLimit, authHandler.ForgotPassword)
			authGroup.POST("/reset-password/:token", credentialLimit, authHandler.ResetPassword)
			authGroup.GET("/authorize/:provider", oauthHandler.Authorize)
			authGroup.GET("/callback/:provider", oauthHandler.Callback)
			authGroup.POST("/token/:provider", credentialLimit, oauthHandler.Token)
		}

		billing := api.Group("/billing")
		{
			billing.GET("/balance", authMw, billingHandler.GetBalance)
			billing.GET("/transactions", authMw, billingHandler.GetTransactions)
			billing.POST("/balance/add", authMw, fundingLimit, billingHandler.AddFunds)
			billing.POST("/create-payment-sheet", authMw, fundingLimit, billingHandler.CreatePaymentSheet)
			billing.GET("/stripe/publishable_key", billingHandler.PublishableKey)
			billing.POST("/payment-webhook", webhookLimit, webhookHandler.Handle)
		}
	}

	return r
}
