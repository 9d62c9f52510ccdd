package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rodrigofm92/chamado-import-service/internal/api/dto"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
	apperrors "github.com/rodrigofm92/chamado-import-service/pkg/util"
)

// EnrichmentHandler receives classification results from the remote service.
type EnrichmentHandler struct {
	service *service.EnrichmentService
}

// NewEnrichmentHandler constructs handler.
func NewEnrichmentHandler(enrichmentService *service.EnrichmentService) *EnrichmentHandler {
	return &EnrichmentHandler{service: enrichmentService}
}

// Complete POST /enrichment/results. The classifier calls back here once a
// primary-dialect batch has been annotated; the batch moves to DONE.
func (h *EnrichmentHandler) Complete(c *fiber.Ctx) error {
	var req dto.EnrichmentCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.BatchID == "" {
		return apperrors.NewValidationError("batchId is required", nil)
	}

	results := make([]service.EnrichmentResult, 0, len(req.Chamados))
	for _, item := range req.Chamados {
		results = append(results, service.EnrichmentResult{
			TicketID:  item.TicketID,
			Sentiment: item.Emotion,
			Type:      item.Type,
			Summary:   item.Summary,
			Keywords:  item.Keywords,
		})
	}

	if err := h.service.CompleteBatch(c.UserContext(), req.BatchID, results); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"batch_id": req.BatchID, "received": len(results)}})
}
