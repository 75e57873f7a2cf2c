package bootstrap

import (
	"net/http"

	"foodbridge-backend/internal/config"
	"foodbridge-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// New creates the Fiber app for serverless deployments (the api handler imports this package, not internal).
// Migrations are left to the long-running server in cmd/api.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	deps, err := router.Open(cfg)
	if err != nil {
		return nil, err
	}
	return router.CreateApp(deps), nil
}

// Handler is New adapted to net/http.
func Handler() (http.Handler, error) {
	app, err := New()
	if err != nil {
		return nil, err
	}
	return router.Handler(app), nil
}
