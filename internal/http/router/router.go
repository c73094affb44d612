package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerryawoyele/markezon-backend/internal/config"
	"github.com/jerryawoyele/markezon-backend/internal/http/handlers"
	"github.com/jerryawoyele/markezon-backend/internal/http/middleware"
	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	catalogHandler *handlers.CatalogHandler,
	bookingHandler *handlers.BookingHandler,
	disputeHandler *handlers.DisputeHandler,
	postHandler *handlers.PostHandler,
	feedHandler *handlers.FeedHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
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
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/profiles/username-check", profileHandler.CheckUsername)
	api.GET("/profiles/:id", middleware.UUIDValidator("id"), profileHandler.GetProfile)
	api.GET("/services", catalogHandler.List)
	api.GET("/services/:id", middleware.UUIDValidator("id"), catalogHandler.Get)
	api.GET("/users/:id/services", middleware.UUIDValidator("id"), catalogHandler.ListByProvider)
	api.GET("/users/:id/posts", middleware.UUIDValidator("id"), postHandler.ListByUser)
	api.GET("/posts/:id", middleware.UUIDValidator("id"), postHandler.Get)
	api.GET("/posts/:id/comments", middleware.UUIDValidator("id"), postHandler.ListComments)
	api.GET("/media/info/:id", middleware.UUIDValidator("id"), mediaHandler.Get)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profiles/me", profileHandler.GetMyProfile)
		protected.PUT("/profiles/me", profileHandler.UpdateMyProfile)
		protected.PUT("/profiles/me/username", profileHandler.ChangeUsername)
		protected.POST("/profiles/me/payout-account", profileHandler.RegisterPayoutAccount)
		protected.GET("/profiles/me/payout-account", profileHandler.GetMyPayoutAccount)
		protected.POST("/profiles/:id/follow", middleware.UUIDValidator("id"), profileHandler.Follow)
		protected.DELETE("/profiles/:id/follow", middleware.UUIDValidator("id"), profileHandler.Unfollow)

		protected.POST("/services", catalogHandler.Create)
		protected.PUT("/services/:id", middleware.UUIDValidator("id"), catalogHandler.Update)

		protected.POST("/bookings", bookingHandler.Create)
		protected.GET("/bookings", bookingHandler.List)
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), bookingHandler.Get)
		protected.POST("/bookings/:id/confirm", middleware.UUIDValidator("id"), bookingHandler.Confirm)
		protected.POST("/bookings/:id/start", middleware.UUIDValidator("id"), bookingHandler.StartService)
		protected.POST("/bookings/:id/done", middleware.UUIDValidator("id"), bookingHandler.MarkServiceDone)
		protected.POST("/bookings/:id/complete", middleware.UUIDValidator("id"), bookingHandler.ConfirmCompletion)
		protected.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), bookingHandler.Cancel)
		protected.POST("/bookings/:id/dispute", middleware.UUIDValidator("id"), bookingHandler.Dispute)
		protected.GET("/bookings/:id/escrow", middleware.UUIDValidator("id"), bookingHandler.GetEscrow)
		protected.GET("/bookings/:id/ledger", middleware.UUIDValidator("id"), bookingHandler.GetLedger)

		protected.GET("/disputes/my", disputeHandler.ListMy)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)

		protected.POST("/posts", postHandler.Create)
		protected.PUT("/posts/:id", middleware.UUIDValidator("id"), postHandler.Update)
		protected.DELETE("/posts/:id", middleware.UUIDValidator("id"), postHandler.Delete)
		protected.POST("/posts/:id/like", middleware.UUIDValidator("id"), postHandler.Like)
		protected.DELETE("/posts/:id/like", middleware.UUIDValidator("id"), postHandler.Unlike)
		protected.POST("/posts/:id/comments", middleware.UUIDValidator("id"), postHandler.AddComment)
		protected.POST("/posts/:id/promote", middleware.UUIDValidator("id"), postHandler.Promote)

		protected.GET("/feed", feedHandler.GetFeed)
		protected.POST("/feed/promotions/:id/click", middleware.UUIDValidator("id"), feedHandler.RecordClick)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		protected.POST("/media", mediaHandler.Upload)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Delete)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/disputes", disputeHandler.List)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.TakeUnderReview)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		admin.PUT("/payout-accounts/:id/verify", middleware.UUIDValidator("id"), profileHandler.VerifyPayoutAccount)
		admin.POST("/profiles/:id/resync-counters", middleware.UUIDValidator("id"), profileHandler.ResyncCounters)
	}

	return r
}
