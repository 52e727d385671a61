package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Pages   *handlers.PagesHandler
	Guard   *auth.GuardMiddleware
	Routes  domain.Routes
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Every page subtree is wrapped in the
// guard of its domain.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/session/:domain", cfg.Session.Get)
	api.Get("/session/:domain/events", cfg.Session.Stream)
	api.Post("/user/roles/refresh", cfg.Session.RefreshRoles)
	api.Post("/:domain/login", cfg.Session.Login)
	api.Post("/:domain/logout", cfg.Session.Logout)

	registerAdminRoutes(app, cfg)
	registerUserRoutes(app, cfg)
}

func registerAdminRoutes(app *fiber.App, cfg RouteConfig) {
	guard, r := cfg.Guard, cfg.Routes

	app.Get(r.AdminLogin, guard.RequireNoAuth(domain.DomainAdmin), cfg.Pages.AdminLogin)
	app.Get(r.AdminLanding, guard.RequireAuth(domain.DomainAdmin), cfg.Pages.AdminDashboard)
	app.Get("/admin/*", guard.RequireAuth(domain.DomainAdmin), cfg.Pages.AdminDashboard)
}

func registerUserRoutes(app *fiber.App, cfg RouteConfig) {
	guard, r := cfg.Guard, cfg.Routes

	app.Get(r.UserLogin, guard.RequireNoAuth(domain.DomainUser), cfg.Pages.UserLogin)
	app.Get("/register", guard.RequireNoAuth(domain.DomainUser), cfg.Pages.Register)

	customer := guard.RequireAuth(domain.DomainUser, domain.RoleUser)
	app.Get("/account/*", customer, cfg.Pages.Customer)
	app.Get("/cart", customer, cfg.Pages.Customer)
	app.Get("/orders/*", customer, cfg.Pages.Customer)

	vendor := guard.RequireAuth(domain.DomainUser, domain.RoleVendor)
	app.Get(r.VendorHome, vendor, cfg.Pages.Vendor)
	app.Get("/vendor/*", vendor, cfg.Pages.Vendor)

	app.Get(r.RoleSelect, vendor, cfg.Pages.RoleSelect)
	app.Post(r.RoleSelect, vendor, cfg.Pages.SelectRole)

	app.Get(r.UserLanding, cfg.Pages.Home)
}
