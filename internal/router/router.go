package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/handler"
	"github.com/stemsi/quizhub-backend/internal/logger"
	"github.com/stemsi/quizhub-backend/internal/middleware"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
)

// Question images never change once stored.
const imageMaxAge = 365 * 24 * time.Hour

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Account *handler.AccountHandler
	Quiz    *handler.QuizHandler
	Result  *handler.ResultHandler
	Proctor *handler.ProctorHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by the middlewares.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the request logger can report it.
	router.Use(response.RequestIDMiddleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	requireJWT := middleware.RequireJWT(authService)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, time.Minute)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		auth.GET("/validate", requireJWT, handlers.Auth.Validate)
		auth.PUT("/profile", requireJWT, handlers.Auth.UpdateProfile)
	}

	api := router.Group("/api/v1")
	api.Use(requireJWT)

	// ─── 2. User lifecycle (Admin) ─────────────────────────────────────
	users := api.Group("/users")
	users.Use(middleware.RequireAdmin())
	{
		users.GET("", handlers.Account.ListActive)
		users.GET("/pending", handlers.Account.ListPending)
		users.GET("/retired", handlers.Account.ListRetired)
		users.POST("/approve", handlers.Account.Approve)
		users.POST("/delete", handlers.Account.DeleteBatch)
		users.POST("/staff", handlers.Account.CreateStaff)
		users.DELETE("/:id", handlers.Account.Delete)
		users.PUT("/:id/password", handlers.Account.ResetPassword)
		users.POST("/retired/:id/restore", handlers.Account.Restore)
		users.DELETE("/retired/:id", handlers.Account.PermanentDelete)
	}

	// ─── 3. Quizzes ────────────────────────────────────────────────────
	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("", middleware.RequireAuthor(), handlers.Quiz.List)
		quizzes.POST("", middleware.RequireAuthor(), handlers.Quiz.Create)
		quizzes.GET("/available", middleware.RequireStudent(), handlers.Quiz.ListAvailable)
		quizzes.GET("/:id", handlers.Quiz.Get)
		quizzes.DELETE("/:id", middleware.RequireAuthor(), handlers.Quiz.Delete)
		quizzes.GET("/:id/questions/:question_id/image",
			middleware.CacheControl(imageMaxAge, true),
			handlers.Quiz.QuestionImage,
		)

		// Taking
		quizzes.POST("/:id/submit", middleware.RequireStudent(), handlers.Result.Submit)
		quizzes.POST("/:id/violations", middleware.RequireStudent(), handlers.Proctor.Report)

		// Authoring views
		quizzes.GET("/:id/results", middleware.RequireAuthor(), handlers.Result.QuizResults)
		quizzes.GET("/:id/results/export", middleware.RequireAuthor(), handlers.Result.Export)
		quizzes.GET("/:id/violations", middleware.RequireAuthor(), handlers.Proctor.List)
	}

	// ─── 4. Results ────────────────────────────────────────────────────
	results := api.Group("/results")
	{
		results.GET("", handlers.Result.List)
		results.GET("/:id", handlers.Result.Details)
	}

	// ─── 5. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireJWT)
	{
		ws.GET("/quizzes/:id/proctor", handlers.WS.ProctorStream)
	}

	return router
}
