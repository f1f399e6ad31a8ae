package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/engineer-market-backend/internal/config"
	"github.com/ignatzorin/engineer-market-backend/internal/http/handlers"
	"github.com/ignatzorin/engineer-market-backend/internal/http/middleware"
	"github.com/ignatzorin/engineer-market-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	requestHandler *handlers.RequestHandler,
	offerHandler *handlers.OfferHandler,
	adminHandler *handlers.AdminHandler,
	notificationHandler *handlers.NotificationHandler,
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

	// WebSocket авторизуется токеном в query.
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Заявки клиента.
		writeRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		protected.POST("/requests", writeRateLimit, requestHandler.CreateRequest)
		protected.GET("/requests/my", requestHandler.MyRequests)
		protected.GET("/requests/nearby", offerHandler.NearbyRequests)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.GetRequest)
		protected.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), requestHandler.CancelRequest)
		protected.POST("/requests/:id/rate", middleware.UUIDValidator("id"), requestHandler.RateRequest)
		protected.POST("/requests/:id/offers/:offerId/accept",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("offerId"), requestHandler.AcceptOffer)

		// Предложения инженера и ход работ.
		protected.POST("/requests/:id/offers", middleware.UUIDValidator("id"), writeRateLimit, offerHandler.SubmitOffer)
		protected.POST("/requests/:id/start", middleware.UUIDValidator("id"), offerHandler.StartService)
		protected.POST("/requests/:id/complete", middleware.UUIDValidator("id"), offerHandler.CompleteService)
		protected.PATCH("/offers/:id", middleware.UUIDValidator("id"), offerHandler.UpdateOffer)
		protected.GET("/offers/my", offerHandler.MyOffers)

		// Уведомления.
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	// Маршруты оператора поддержки.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole("admin"))
	{
		admin.GET("/requests", adminHandler.ListRequests)
		admin.GET("/requests/:id", middleware.UUIDValidator("id"), adminHandler.GetRequest)
		admin.PUT("/requests/:id/status", middleware.UUIDValidator("id"), adminHandler.UpdateStatus)
		admin.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), adminHandler.CancelRequest)
		admin.POST("/requests/:id/assign", middleware.UUIDValidator("id"), adminHandler.AssignEngineer)
	}

	return r
}
