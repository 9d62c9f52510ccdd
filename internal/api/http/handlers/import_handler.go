package handlers

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/rodrigofm92/chamado-import-service/internal/api/dto"
	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
	apperrors "github.com/rodrigofm92/chamado-import-service/pkg/util"
)

// ImportHandler receives bulk export files.
type ImportHandler struct {
	service *service.ImportService
}

// NewImportHandler constructs handler.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{service: importService}
}

// ImportPrimary POST /imports/primary.
func (h *ImportHandler) ImportPrimary(c *fiber.Ctx) error {
	return h.handleImport(c, h.service.ImportPrimary)
}

// ImportAlternative POST /imports/alternative.
func (h *ImportHandler) ImportAlternative(c *fiber.Ctx) error {
	return h.handleImport(c, h.service.ImportAlternative)
}

// ListBatches GET /imports/batches.
func (h *ImportHandler) ListBatches(c *fiber.Ctx) error {
	batches, err := h.service.ListBatches(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.BatchResponse, 0, len(batches))
	for _, batch := range batches {
		items = append(items, dto.BatchResponse{
			ID:        batch.ID,
			Name:      batch.Name,
			Status:    batch.Status,
			CreatedAt: batch.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetBatch GET /imports/batches/:id.
func (h *ImportHandler) GetBatch(c *fiber.Ctx) error {
	batch, err := h.service.GetBatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BatchResponse{
		ID:        batch.ID,
		Name:      batch.Name,
		Status:    batch.Status,
		CreatedAt: batch.CreatedAt,
	}})
}

func (h *ImportHandler) handleImport(c *fiber.Ctx, run func(context.Context, io.Reader, string) (*domain.ImportBatch, error)) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("file could not be read", nil)
	}
	defer file.Close()

	name := c.FormValue("name")
	if name == "" {
		name = fileHeader.Filename
	}

	batch, err := run(c.UserContext(), file, name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.ImportAcceptedResponse{
		BatchID: batch.ID,
		Name:    batch.Name,
		Status:  batch.Status,
	}})
}
