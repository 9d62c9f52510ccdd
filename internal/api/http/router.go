package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rodrigofm92/chamado-import-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Imports    *handlers.ImportHandler
	Tickets    *handlers.TicketsHandler
	Enrichment *handlers.EnrichmentHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	imports := app.Group("/imports")
	imports.Post("/primary", cfg.Imports.ImportPrimary)
	imports.Post("/alternative", cfg.Imports.ImportAlternative)
	imports.Get("/batches", cfg.Imports.ListBatches)
	imports.Get("/batches/:id", cfg.Imports.GetBatch)

	app.Post("/enrichment/results", cfg.Enrichment.Complete)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/status/:status", cfg.Tickets.ListByStatus)
	tickets.Get("/sentiment/:sentiment", cfg.Tickets.ListBySentiment)
	tickets.Get("/dialect/:dialect", cfg.Tickets.ListByDialect)
	tickets.Get("/batch/:batchId", cfg.Tickets.ListByBatch)

	interactions := app.Group("/interactions")
	interactions.Get("/alternative/:ticketId", cfg.Tickets.ListAlternativeInteractions)
	interactions.Get("/:ticketId", cfg.Tickets.ListInteractions)
}
