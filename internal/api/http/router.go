package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-dispatch/internal/api/http/handlers"
	"github.com/spec-kit/lead-dispatch/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Assignments    *handlers.AssignmentsHandler
	Routing        *handlers.RoutingHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	leads := api.Group("/leads")
	leads.Post("/:id/assign", cfg.Assignments.AssignLead)
	leads.Get("/:id/assignments", cfg.Assignments.LeadHistory)
	leads.Get("/:id/queues/:queueID/owner", cfg.Assignments.GetQueueOwner)
	leads.Post("/:id/menu-response", cfg.Routing.MenuReply)

	api.Post("/contacts/:id/route", cfg.Routing.RouteContact)
	api.Get("/channels/:id/menu", cfg.Routing.ChannelMenu)
	api.Get("/queues/:id/workload", cfg.Assignments.QueueWorkload)

	distribution := api.Group("/distribution")
	distribution.Get("/stats", cfg.Assignments.DistributionStats)
	distribution.Post("/reset", auth.RequireAdmin(), cfg.Assignments.ResetDistribution)
}
