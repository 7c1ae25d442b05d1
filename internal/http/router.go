package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bibliotek/backend/internal/auth"
	"github.com/bibliotek/backend/internal/database"
	"github.com/bibliotek/backend/internal/database/users"
	"github.com/bibliotek/backend/internal/forum"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database    *database.Database
	Reputation  ReputationService
	Leaderboard Leaderboard
	ForumHooks  *forum.Hooks

	// User repository for registration and lookups
	UserRepo *users.Repository

	// Authentication (nil disables auth, requests run as the default user)
	AuthMiddleware *auth.Middleware
	BcryptCost     int

	// Application info
	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		cfg.AuthMiddleware.AllowPublic("/api/users")
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - inject default user ID
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	gamification := NewGamificationController(cfg.Reputation, cfg.ForumHooks)
	rankingController := NewRankingController(cfg.Leaderboard)
	usersController := NewUsersController(cfg.UserRepo, cfg.Reputation, cfg.BcryptCost)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Gamification endpoints
	router.GET("/api/gamification/status", gamification.Status)
	router.POST("/api/gamification/reading", gamification.RegisterReading)
	router.GET("/api/gamification/history", gamification.History)
	router.POST("/api/gamification/forum/topic", gamification.TopicCreated)
	router.POST("/api/gamification/forum/reply", gamification.ReplyCreated)

	// Ranking endpoints
	router.GET("/api/ranking/users", rankingController.Users)

	// Account endpoints
	router.POST("/api/users", usersController.Register)
	router.DELETE("/api/users/:id", usersController.Delete)

	return router
}
