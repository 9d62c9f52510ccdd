package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rodrigofm92/chamado-import-service/internal/api/dto"
	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
	apperrors "github.com/rodrigofm92/chamado-import-service/pkg/util"
)

// TicketsHandler serves imported-ticket read endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	tickets, err := h.service.ListTickets(c.UserContext(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListByStatus GET /tickets/status/:status.
func (h *TicketsHandler) ListByStatus(c *fiber.Ctx) error {
	status := c.Params("status")
	if status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}
	tickets, err := h.service.ListByStatus(c.UserContext(), domain.TicketStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListBySentiment GET /tickets/sentiment/:sentiment.
func (h *TicketsHandler) ListBySentiment(c *fiber.Ctx) error {
	sentiment := c.Params("sentiment")
	if sentiment == "" {
		return apperrors.NewValidationError("sentiment is required", nil)
	}
	tickets, err := h.service.ListBySentiment(c.UserContext(), sentiment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListByDialect GET /tickets/dialect/:dialect.
func (h *TicketsHandler) ListByDialect(c *fiber.Ctx) error {
	dialect := domain.ImportDialect(c.Params("dialect"))
	if dialect != domain.DialectPrimary && dialect != domain.DialectAlternative {
		return apperrors.NewValidationError("unknown dialect", map[string]any{"dialect": c.Params("dialect")})
	}
	tickets, err := h.service.ListByDialect(c.UserContext(), dialect)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListByBatch GET /tickets/batch/:batchId.
func (h *TicketsHandler) ListByBatch(c *fiber.Ctx) error {
	batchID := c.Params("batchId")
	if batchID == "" {
		return apperrors.NewValidationError("batchId is required", nil)
	}
	tickets, err := h.service.ListByBatch(c.UserContext(), batchID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// ListInteractions GET /interactions/:ticketId.
func (h *TicketsHandler) ListInteractions(c *fiber.Ctx) error {
	ticketID := c.Params("ticketId")
	if ticketID == "" {
		return apperrors.NewValidationError("ticketId is required", nil)
	}
	interactions, err := h.service.ListInteractions(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.InteractionResponse, 0, len(interactions))
	for i := range interactions {
		items = append(items, dto.FromInteraction(&interactions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAlternativeInteractions GET /interactions/alternative/:ticketId.
func (h *TicketsHandler) ListAlternativeInteractions(c *fiber.Ctx) error {
	ticketID := c.Params("ticketId")
	if ticketID == "" {
		return apperrors.NewValidationError("ticketId is required", nil)
	}
	interactions, err := h.service.ListAlternativeInteractions(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.AlternativeInteractionResponse, 0, len(interactions))
	for i := range interactions {
		items = append(items, dto.FromAlternativeInteraction(&interactions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
