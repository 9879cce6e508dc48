package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-engine/internal/api/http/handlers"
	"github.com/spec-kit/notification-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Events         *handlers.EventsHandler
	Rules          *handlers.RulesHandler
	Engine         *handlers.EngineHandler
	Dashboard      *handlers.DashboardHandler
	Settings       *handlers.SettingsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Everything except health probes sits
// behind bearer auth; rule mutation requires the admin role.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Post("/events", cfg.Events.EmitEvent)

	rules := api.Group("/rules")
	rules.Get("/", cfg.Rules.ListRules)
	rules.Get("/:id", cfg.Rules.GetRule)
	rules.Post("/", auth.RequireAdmin(), cfg.Rules.CreateRule)
	rules.Put("/:id", auth.RequireAdmin(), cfg.Rules.UpdateRule)
	rules.Delete("/:id", auth.RequireAdmin(), cfg.Rules.DeleteRule)

	engine := api.Group("/engine")
	engine.Post("/execute", cfg.Engine.ExecuteRules)
	engine.Post("/escalate", cfg.Engine.Escalate)
	engine.Delete("/delayed/:handle", cfg.Engine.CancelDelayed)
	engine.Get("/stats", cfg.Engine.Stats)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/alerts", cfg.Dashboard.ListAlerts)
	dashboard.Get("/violations", cfg.Dashboard.ListViolations)
	dashboard.Post("/violations/:id/acknowledge", cfg.Dashboard.AcknowledgeViolation)
	dashboard.Get("/escalations", cfg.Dashboard.ListEscalations)
	dashboard.Get("/logs", cfg.Dashboard.ListLogs)

	api.Get("/users/:id/notification-settings", cfg.Settings.GetSettings)
	api.Put("/users/:id/notification-settings", cfg.Settings.UpsertSettings)
}
