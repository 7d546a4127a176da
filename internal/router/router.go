package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/handler"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Question   *handler.QuestionHandler
	Interview  *handler.InterviewHandler
	Evaluation *handler.EvaluationHandler
	Events     *handler.EventsHandler
	WS         *handler.WSHandler
	Health     *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Recordings are already compressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return strings.HasSuffix(c.Request.URL.Path, "/recording")
		},
	}))

	// ─── Health ────────────────────────────────────────────────────────
	router.GET("/health", middleware.NoStore(), handlers.Health.Health)
	router.GET("/health/stats", middleware.NoStore(), handlers.Health.Stats)

	// Rate limiter for credential routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	requireAuth := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.CheckActiveToken(authService),
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		authed := auth.Group("", requireAuth...)
		authed.POST("/logout", handlers.Auth.Logout)
		authed.GET("/me", handlers.Auth.GetProfile)
		authed.PUT("/me", handlers.Auth.UpdateProfile)
	}

	// ─── 2. Question Bank (JWT) ────────────────────────────────────────
	questions := router.Group("/api/v1/questions", requireAuth...)
	{
		questions.GET("", middleware.PrivateCache(60), handlers.Question.ListQuestions)
		questions.GET("/industries", middleware.PrivateCache(300), handlers.Question.ListIndustries)
		questions.GET("/:id", middleware.PrivateCache(60), handlers.Question.GetQuestion)
		questions.POST("/:id/favorite", handlers.Question.AddFavorite)
		questions.DELETE("/:id/favorite", handlers.Question.RemoveFavorite)
	}

	// ─── 3. Interviews (JWT) ───────────────────────────────────────────
	interviews := router.Group("/api/v1/interviews", requireAuth...)
	interviews.Use(middleware.NoStore())
	{
		interviews.POST("", handlers.Interview.CreateInterview)
		interviews.GET("", handlers.Interview.ListInterviews)
		interviews.GET("/:id", handlers.Interview.GetInterview)
		interviews.GET("/:id/events", handlers.Events.InterviewEventsSSE)
		interviews.GET("/:id/timeline", handlers.Interview.GetTimeline)
		interviews.GET("/:id/recording", handlers.Interview.DownloadRecording)
		interviews.GET("/:id/evaluation", handlers.Evaluation.GetEvaluation)
		interviews.PUT("/:id/evaluation", handlers.Evaluation.SubmitEvaluation)
	}

	// ─── 4. WebSocket Group (query-token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService), middleware.CheckActiveToken(authService))
	{
		ws.GET("/interviews/:id/stream", handlers.WS.InterviewStream)
	}

	return router
}
