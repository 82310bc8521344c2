package server

import (
	"net/http"
	"time"

	"github.com/mek0124/momentum/internal/cache"
	"github.com/mek0124/momentum/internal/config"
	"github.com/mek0124/momentum/internal/handlers"
	"github.com/mek0124/momentum/internal/logger"
	"github.com/mek0124/momentum/internal/middleware"
	"github.com/mek0124/momentum/internal/monitoring"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies carries everything the router needs. Cache and Jobs may be
// nil; the affected features degrade to direct store access and no
// notifications.
type Dependencies struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *cache.RedisCache
	Jobs   services.JobQueue
	Logger *zap.Logger
}

// NewRouter assembles the full HTTP surface: public auth and webhook
// routes, the bearer-guarded task and subscription routes, and the
// operational endpoints.
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(logger.AccessLog(log))
	router.Use(monitoring.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	users := services.NewUserService()
	var tasks services.TaskService = services.NewTaskService()
	if deps.Cache != nil {
		tasks = services.NewCachedTaskService(tasks, deps.Cache)
	}
	billing := services.NewBillingService(cfg.Billing, cfg.Server.BaseURL, users, deps.Cache, deps.Jobs, log)

	authHandler := handlers.NewAuthHandler(deps.DB, services.NewAuthService(cfg.Auth.BCryptCost), services.NewRegisterService(cfg.Auth.BCryptCost), tokens)
	taskHandler := handlers.NewTaskHandler(deps.DB, tasks)
	billingHandler := handlers.NewBillingHandler(deps.DB, billing)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "momentum-api",
			"version": "1.0.0",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK

		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.Ping() != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if deps.Cache != nil {
			if err := deps.Cache.Ping(); err != nil {
				status["cache"] = "unreachable"
			}
		}
		c.JSON(code, status)
	})
	router.GET("/metrics", monitoring.Handler())

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Authenticated by HMAC signature, not by bearer token.
	router.POST("/subscription/webhook", billingHandler.Webhook)

	guard := middleware.RequireAuth(deps.DB, tokens, users)

	router.GET("/auth/me", guard, authHandler.Me)

	taskRoutes := router.Group("/tasks", guard)
	{
		taskRoutes.GET("", taskHandler.List)
		taskRoutes.POST("", taskHandler.Create)
		taskRoutes.GET("/:id", taskHandler.Get)
		taskRoutes.PUT("/:id", taskHandler.Update)
		taskRoutes.DELETE("/:id", taskHandler.Delete)
	}

	subRoutes := router.Group("/subscription", guard)
	{
		subRoutes.GET("/status", billingHandler.Status)
		subRoutes.POST("/checkout", billingHandler.Checkout)
		subRoutes.POST("/cancel", billingHandler.Cancel)
	}

	return router
}
