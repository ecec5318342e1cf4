package router

import (
	txsvc "farmtrade-backend/internal/application/transactions"
	"farmtrade-backend/internal/config"
	"farmtrade-backend/internal/infrastructure/database"
	"farmtrade-backend/internal/infrastructure/lock"
	healthhandler "farmtrade-backend/internal/interfaces/handlers/health"
	txhandler "farmtrade-backend/internal/interfaces/handlers/transactions"
	"farmtrade-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the open connections the app is built over. Either may be nil.
type Deps struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// CreateApp opens the configured connections and builds the app over them.
func CreateApp(cfg *config.Config) (*fiber.App, Deps, error) {
	var deps Deps
	if cfg.RedisURL != "" {
		rdb, err := middleware.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, deps, err
		}
		deps.Rdb = rdb
	} else {
		log.Warn().Msg("REDIS_URL not set: sessions, stats and distributed locks are disabled")
	}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, deps, err
		}
		deps.DB = db
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, deps, err
			}
			log.Info().Msg("Database migrated")
		}
	} else {
		log.Warn().Msg("No database URL configured: transaction routes are disabled")
	}
	app, err := NewApp(cfg, deps)
	return app, deps, err
}

// NewApp wires middleware and routes over deps.
func NewApp(cfg *config.Config, deps Deps) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: cfg.AllowCrossSiteDev || !cfg.IsProduction(),
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	if deps.Rdb != nil {
		app.Use(middleware.SessionWithClient(deps.Rdb))
		app.Use(middleware.HealthMarker(deps.Rdb))
	}

	hh := &healthhandler.Handlers{HealthAdminKey: cfg.HealthAdminKey}
	// Interface fields stay nil rather than holding typed nils.
	if deps.Rdb != nil {
		hh.Rdb = deps.Rdb
	}
	if deps.DB != nil {
		sqlDB, err := deps.DB.DB()
		if err != nil {
			return nil, err
		}
		hh.DB = sqlDB
	}
	app.Get("/health", hh.Live)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/reset", hh.Reset)

	if deps.DB != nil {
		var locker lock.Locker = lock.NewLocalLocker()
		if deps.Rdb != nil {
			locker = lock.NewRedisLocker(deps.Rdb, cfg.LockExpiry)
		}
		txh := &txhandler.Handlers{
			Service:         txsvc.NewService(deps.DB, locker),
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		}
		txh.Register(app.Group("/api/v1/transactions", middleware.RequireAuth()))
	}

	return app, nil
}
