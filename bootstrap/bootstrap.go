package bootstrap

import (
	"farmtrade-backend/internal/config"
	"farmtrade-backend/internal/interfaces/router"
	"farmtrade-backend/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless hosting (the api handler imports this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	app, _, err := router.CreateApp(cfg)
	return app, err
}
