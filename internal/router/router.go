package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/handler"
	"github.com/kmhistory/quizhub-backend/internal/middleware"
	"github.com/kmhistory/quizhub-backend/internal/response"
	"github.com/kmhistory/quizhub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Quiz   *handler.QuizHandler
	Bundle *handler.BundleHandler
	Admin  *handler.AdminHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// CORS: credentials must be allowed because the JWT travels in a
	// cookie; that rules out the wildcard origin, so dev needs an explicit
	// AllowedOrigins list.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request IDs and metrics apply to every route.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.PrometheusHandler())

	// Submissions are cheap to grade but fuel the stats counters; keep a
	// generous per-IP lid on them.
	submitLimiter := middleware.NewRateLimiter(60, time.Minute)
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Auth endpoints.
	auth := router.Group("/api/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireUser(authService), handlers.Auth.Me)
	}

	// Public quiz endpoints. Anonymous play is allowed; a valid cookie
	// upgrades the request with history recording and progress replay.
	quiz := router.Group("/api/quiz")
	quiz.Use(middleware.OptionalUser(authService))
	{
		quiz.GET("/random", handlers.Quiz.Random)
		quiz.GET("/topics", handlers.Quiz.Topics)
		quiz.POST("/submit", submitLimiter.Middleware(), handlers.Quiz.Submit)
	}

	// Bundle play carries per-user progress, so the whole surface needs a
	// logged-in user.
	bundles := router.Group("/api/quiz/bundles")
	bundles.Use(middleware.RequireUser(authService))
	{
		bundles.GET("", handlers.Bundle.List)
		bundles.GET("/:id", handlers.Bundle.Detail)
		bundles.POST("/:id/progress", handlers.Bundle.SaveProgress)
		bundles.DELETE("/:id/progress", handlers.Bundle.ResetProgress)
	}

	// Console endpoints.
	admin := router.Group("/api/admin/quiz")
	admin.Use(middleware.RequireAdmin(authService))
	{
		admin.GET("/questions", handlers.Admin.ListQuestions)
		admin.POST("/questions", handlers.Admin.CreateQuestion)
		admin.GET("/questions/:id", handlers.Admin.GetQuestion)
		admin.PUT("/questions/:id", handlers.Admin.UpdateQuestion)
		admin.DELETE("/questions/:id", handlers.Admin.DeleteQuestion)

		admin.GET("/bundles", handlers.Admin.ListBundles)
		admin.POST("/bundles", handlers.Admin.CreateBundle)
		admin.GET("/bundles/:id", handlers.Admin.GetBundle)
		admin.PUT("/bundles/:id", handlers.Admin.UpdateBundle)
		admin.DELETE("/bundles/:id", handlers.Admin.DeleteBundle)

		admin.POST("/topics", handlers.Admin.CreateTopic)
		admin.PUT("/topics/:id", handlers.Admin.UpdateTopic)
		admin.DELETE("/topics/:id", handlers.Admin.DeleteTopic)

		admin.GET("/stats", handlers.Admin.Stats)
	}

	return router
}
