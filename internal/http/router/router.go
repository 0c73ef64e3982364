package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/accmarket-backend/internal/config"
	"github.com/ignatzorin/accmarket-backend/internal/http/handlers"
	"github.com/ignatzorin/accmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	listingHandler *handlers.ListingHandler,
	transactionHandler *handlers.TransactionHandler,
	disputeHandler *handlers.DisputeHandler,
	evidenceHandler *handlers.EvidenceHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", authHandler.DeleteSession)
		protectedAuth.DELETE("/sessions", authHandler.DeleteAllSessionsExcept)
	}

	// Публичные маршруты
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/estimate", listingHandler.Estimate)
	api.GET("/listings/:id", middleware.UUIDValidator("id"), listingHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/listings", listingHandler.Create)
		protected.GET("/listings/my", listingHandler.Mine)
		protected.POST("/listings/:id/withdraw", middleware.UUIDValidator("id"), listingHandler.Withdraw)

		purchaseRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		protected.POST("/purchases", purchaseRateLimit, transactionHandler.Purchase)
		protected.POST("/purchases/:id/finalize", middleware.UUIDValidator("id"), transactionHandler.Finalize)
		protected.GET("/purchases/:id", middleware.UUIDValidator("id"), transactionHandler.Get)

		protected.POST("/evidence", evidenceHandler.Upload)
		protected.GET("/evidence/:ref", evidenceHandler.Download)
	}

	// Арбитраж: только для роли arbiter
	arbitration := api.Group("/disputes")
	arbitration.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleArbiter))
	{
		arbitration.GET("", disputeHandler.ListOpen)
		arbitration.GET("/by-transaction/:id", middleware.UUIDValidator("id"), disputeHandler.GetByTransaction)
		arbitration.GET("/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		arbitration.POST("/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
	}

	return r
}
