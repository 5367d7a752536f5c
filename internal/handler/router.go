package handler

import (
	"time"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/cache"
	"github.com/flagforge/api/internal/middleware"
	"github.com/flagforge/api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RouterConfig carries everything the HTTP surface depends on. Tests build
// the same router over an in-memory database.
type RouterConfig struct {
	DB            *gorm.DB
	Hasher        auth.Hasher
	Codec         *auth.Codec
	Verifier      *auth.Verifier
	Store         storage.Store
	Cache         *cache.RedisCache
	TokenLifetime time.Duration
	ScoreboardTTL time.Duration
	Logger        zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.MetricsMiddleware())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := NewAuthHandler(cfg.DB, cfg.Hasher, cfg.Codec, cfg.Verifier, cfg.TokenLifetime)
	userHandler := NewUserHandler(cfg.DB, cfg.Hasher)
	teamHandler := NewTeamHandler(cfg.DB, cfg.Hasher)
	challengeHandler := NewChallengeHandler(cfg.DB, cfg.Store, cfg.Cache)
	fileHandler := NewFileHandler(cfg.DB, cfg.Store)
	announcementHandler := NewAnnouncementHandler(cfg.DB)
	scoreboardHandler := NewScoreboardHandler(cfg.DB, cfg.Cache, cfg.ScoreboardTTL)

	requireAuth := middleware.RequireAuth(cfg.Verifier)
	requireAdmin := middleware.RequireAdmin(cfg.Verifier)

	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.DELETE("/auth/logout", requireAuth, authHandler.Logout)
		api.GET("/auth/me", requireAuth, authHandler.Me)

		api.GET("/users", userHandler.List)
		api.GET("/users/:id", userHandler.Get)
		api.PUT("/users/password", requireAuth, userHandler.ChangePassword)

		api.POST("/teams", requireAuth, teamHandler.Create)
		api.PUT("/teams/join", requireAuth, teamHandler.Join)
		api.PUT("/teams", requireAuth, teamHandler.Update)
		api.GET("/teams/mine", requireAuth, teamHandler.Mine)
		api.GET("/teams", teamHandler.List)
		api.GET("/teams/:id", teamHandler.Get)

		api.GET("/challenges", requireAuth, challengeHandler.List)
		api.POST("/challenges", requireAdmin, challengeHandler.Create)
		api.PUT("/challenges/:id", requireAdmin, challengeHandler.Update)
		api.POST("/challenges/:id/solve", requireAuth, challengeHandler.Solve)
		api.GET("/challenges/:id/solves", requireAuth, challengeHandler.Solves)
		api.POST("/challenges/:id/files", requireAdmin, fileHandler.Upload)
		api.GET("/files/:id", requireAuth, fileHandler.Download)

		api.GET("/announcements", announcementHandler.List)
		api.POST("/announcements", requireAdmin, announcementHandler.Create)
		api.PUT("/announcements/:id", requireAdmin, announcementHandler.Update)
		api.DELETE("/announcements/:id", requireAdmin, announcementHandler.Delete)

		api.GET("/scoreboard", scoreboardHandler.Get)
	}

	return r
}
