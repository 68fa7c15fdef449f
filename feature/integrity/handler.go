package integrity

import (
	"submission-composer/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/records", h.HandleRecordsCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs the storage and record store checks.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	return c.JSON(h.service.CheckAll(c.Context()))
}

// HandleStorageCheck checks the bucket and workflow prefix.
// @Summary Check Storage
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.StorageReport "Storage Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckStorage(c.Context())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.WorkflowPresent {
		l.Warn("Workflow prefix missing", zap.String("prefix", report.WorkflowPrefix))
	}

	return c.JSON(report)
}

// HandleRecordsCheck checks the record store schema.
// @Summary Check Record Store Schema
// @Description Checks if the item_submissions table matches the expected model.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.RecordsReport "Records Check Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/records [get]
func (h *Handler) HandleRecordsCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Starting record store schema check")

	report, err := h.service.CheckRecords()
	if err != nil {
		l.Error("Record store schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}
