package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bibliotek/backend/internal/auth"
	"github.com/bibliotek/backend/internal/config"
	"github.com/bibliotek/backend/internal/database"
	"github.com/bibliotek/backend/internal/database/readinglog"
	repstore "github.com/bibliotek/backend/internal/database/reputation"
	"github.com/bibliotek/backend/internal/database/users"
	"github.com/bibliotek/backend/internal/forum"
	http_controllers "github.com/bibliotek/backend/internal/http"
	"github.com/bibliotek/backend/internal/levels"
	"github.com/bibliotek/backend/internal/ranking"
	"github.com/bibliotek/backend/internal/reputation"
	"github.com/bibliotek/backend/internal/scheduler"
	"github.com/bibliotek/backend/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue and scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bibliotek backend v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	userRepo := users.NewRepository(db.DB)
	reputationRepo := repstore.NewRepository(db.DB)
	readingLogRepo := readinglog.NewRepository(db.DB)

	// Reputation service
	curve := levels.NewCurve(cfg.Gamification.BasePoints)
	reputationService := reputation.NewService(reputationRepo, readingLogRepo, userRepo, curve, reputation.Config{
		SessionPoints: cfg.Gamification.SessionPoints,
		MinInterval:   cfg.Gamification.MinInterval,
	})

	// Leaderboard
	leaderboard := ranking.NewService(db.DB)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewAwardPointsQueue(reputationService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Forum hooks award through the queue when available, synchronously otherwise
	var enqueuer forum.TaskEnqueuer
	if taskClient != nil {
		enqueuer = taskClient
	}
	forumHooks := forum.NewHooks(reputationService, enqueuer)

	// Periodic leaderboard refresh
	var leaderboardScheduler *scheduler.LeaderboardScheduler
	if cfg.Ranking.RefreshEnabled {
		leaderboardScheduler = scheduler.NewLeaderboardScheduler(leaderboard, cfg.Ranking.RefreshSchedule)
		if err := leaderboardScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start leaderboard scheduler: %v", err)
		}
	}

	// Initialize authentication if enabled
	var authMiddleware *auth.Middleware
	if cfg.Auth.Mode == config.AuthModeToken {
		log.Printf("Authentication mode: token")
		authMiddleware = auth.NewMiddleware(userRepo)
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
		// Every request runs as the default user, so it has to exist before
		// the first award or status lookup.
		if err := userRepo.EnsureDefaultUser(); err != nil {
			log.Fatalf("Failed to provision default user: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Reputation:     reputationService,
		Leaderboard:    leaderboard,
		ForumHooks:     forumHooks,
		UserRepo:       userRepo,
		AuthMiddleware: authMiddleware,
		BcryptCost:     cfg.Auth.BcryptCost,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if leaderboardScheduler != nil {
			leaderboardScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
