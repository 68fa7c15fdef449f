package batch

import (
	"errors"

	"submission-composer/core/logger"
	"submission-composer/feature/submission/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for batches.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the batch routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/batches/:batch_id")
	group.Get("/items", h.HandleListItems)
	group.Get("/items/:item_identifier", h.HandleGetItem)
	group.Get("/summary", h.HandleSummary)
	group.Get("/reconcile", h.HandleReconcile)
}

// HandleListItems returns every record of a batch.
// @Summary List Batch Items
// @Tags batches
// @Produce json
// @Param batch_id path string true "Batch identifier"
// @Success 200 {array} models.ItemSubmission
// @Router /batches/{batch_id}/items [get]
func (h *Handler) HandleListItems(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")
	l := logger.WithRayID(h.service.logger, c)

	items, err := h.service.ListItems(c.Context(), batchID)
	if err != nil {
		l.Error("Listing batch items failed", zap.String("batch_id", batchID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(items)
}

// HandleGetItem returns one record.
// @Summary Get Item Submission
// @Tags batches
// @Produce json
// @Param batch_id path string true "Batch identifier"
// @Param item_identifier path string true "Item identifier"
// @Success 200 {object} models.ItemSubmission
// @Failure 404 {object} map[string]string "Not Found"
// @Router /batches/{batch_id}/items/{item_identifier} [get]
func (h *Handler) HandleGetItem(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")
	itemID := c.Params("item_identifier")
	l := logger.WithRayID(h.service.logger, c)

	item, err := h.service.GetItem(c.Context(), batchID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Loading item failed",
			zap.String("batch_id", batchID),
			zap.String("item_identifier", itemID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(item)
}

// HandleSummary returns the per-status counts of a batch.
// @Summary Batch Summary
// @Tags batches
// @Produce json
// @Param batch_id path string true "Batch identifier"
// @Success 200 {object} batch.Summary
// @Router /batches/{batch_id}/summary [get]
func (h *Handler) HandleSummary(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")
	l := logger.WithRayID(h.service.logger, c)

	summary, err := h.service.Summary(c.Context(), batchID)
	if err != nil {
		l.Error("Batch summary failed", zap.String("batch_id", batchID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(summary)
}

// HandleReconcile compares the bitstreams and metadata of a batch.
// @Summary Reconcile Batch
// @Tags batches
// @Produce json
// @Param batch_id path string true "Batch identifier"
// @Success 200 {object} map[string]interface{} "Reconcile Report"
// @Router /batches/{batch_id}/reconcile [get]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	batchID := c.Params("batch_id")
	l := logger.WithRayID(h.service.logger, c)

	result, err := h.service.Reconcile(c.Context(), batchID)
	if err != nil {
		l.Error("Batch reconcile failed", zap.String("batch_id", batchID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !result.Matched() {
		l.Warn("Batch has unmatched items",
			zap.String("batch_id", batchID),
			zap.Strings("bitstreams_without_metadata", result.BitstreamsWithoutMetadata),
			zap.Strings("metadata_without_bitstreams", result.MetadataWithoutBitstreams))
	}

	return c.JSON(fiber.Map{
		"batch_id": batchID,
		"matched":  result.Matched(),
		"summary":  result.Summary(),
		"result":   result,
	})
}
