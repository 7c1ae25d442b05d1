package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single default user, no credentials (default)
	AuthModeToken AuthMode = "token" // Bearer token authentication
)

type (
	Config struct {
		HTTP
		Global
		Database
		Gamification
		Ranking
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Gamification struct {
		BasePoints    int64         // Cost of the first level-up
		SessionPoints int64         // Points granted per reading session
		MinInterval   time.Duration // Minimum gap between rewarded sessions
	}
	Ranking struct {
		RefreshEnabled  bool
		RefreshSchedule string // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Auth struct {
		Mode       AuthMode
		BcryptCost int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Gamification defaults
	v.SetDefault("gamification_base_points", 100)
	v.SetDefault("gamification_session_points", 20)
	v.SetDefault("gamification_min_interval", "10s")

	// Ranking defaults
	v.SetDefault("ranking_refresh_enabled", true)
	v.SetDefault("ranking_refresh_schedule", "*/5 * * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_bcrypt_cost", 12)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Gamification: Gamification{
			BasePoints:    v.GetInt64("GAMIFICATION_BASE_POINTS"),
			SessionPoints: v.GetInt64("GAMIFICATION_SESSION_POINTS"),
			MinInterval:   v.GetDuration("GAMIFICATION_MIN_INTERVAL"),
		},
		Ranking: Ranking{
			RefreshEnabled:  v.GetBool("RANKING_REFRESH_ENABLED"),
			RefreshSchedule: v.GetString("RANKING_REFRESH_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			Mode:       AuthMode(v.GetString("AUTH_MODE")),
			BcryptCost: v.GetInt("AUTH_BCRYPT_COST"),
		},
	}
}
