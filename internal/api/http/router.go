package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	Suggestions    *handlers.SuggestionsHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	// Auth runs per route; a prefix group would also catch unmatched paths.
	authn := cfg.AuthMiddleware.Handle
	anyRole := auth.RequireAnyRole()
	role := auth.RequireAction

	app.Post("/auth/logout", authn, anyRole, cfg.Auth.Logout)
	app.Get("/auth/me", authn, anyRole, cfg.Auth.Me)
	app.Get("/users", authn, anyRole, cfg.Auth.Directory)

	app.Get("/tickets", authn, anyRole, cfg.Tickets.ListTickets)
	app.Post("/tickets", authn, role(policy.ActionCreateTicket), cfg.Tickets.CreateTicket)
	app.Get("/tickets/:id", authn, anyRole, cfg.Tickets.GetTicket)
	app.Patch("/tickets/:id", authn, anyRole, cfg.Tickets.UpdateTicket)
	app.Get("/tickets/:id/permissions", authn, anyRole, cfg.Tickets.Permissions)
	app.Post("/tickets/:id/comments", authn, anyRole, cfg.Tickets.AddComment)
	app.Post("/tickets/:id/suggestions", authn, role(policy.ActionRequestSuggestions), cfg.Suggestions.Request)
	app.Get("/suggestions", authn, role(policy.ActionRequestSuggestions), cfg.Suggestions.Current)

	app.Get("/dashboard/admin", authn, role(policy.ActionViewStats), cfg.Dashboard.Admin)
	app.Get("/dashboard/technician", authn, role(policy.ActionViewQueue), cfg.Dashboard.Technician)

	app.Get("/chat", authn, role(policy.ActionUseIntake), cfg.Chat.Conversation)
	app.Post("/chat/messages", authn, role(policy.ActionUseIntake), cfg.Chat.Submit)
}
