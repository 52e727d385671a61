package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/http/handlers"
)

// DevAPIRouteConfig bundles dependencies of the development remote API.
type DevAPIRouteConfig struct {
	Health   *handlers.HealthHandler
	Accounts *handlers.AccountsHandler
}

// RegisterDevAPIRoutes wires the development remote API.
func RegisterDevAPIRoutes(app *fiber.App, cfg DevAPIRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/:domain/login", cfg.Accounts.Login)
	authGroup.Post("/:domain/logout", cfg.Accounts.RequireToken, cfg.Accounts.Logout)

	users := app.Group("/users")
	users.Get("/:id/status", cfg.Accounts.RequireToken, cfg.Accounts.Status)
	users.Get("/:id/roles", cfg.Accounts.RequireToken, cfg.Accounts.Roles)
	users.Post("/:id/block", cfg.Accounts.RequireToken, cfg.Accounts.RequireAdmin, cfg.Accounts.Block)
	users.Post("/:id/vendor", cfg.Accounts.RequireToken, cfg.Accounts.RequireAdmin, cfg.Accounts.SetVendor)
}
