package status

import (
	"errors"

	"mrbox/core/logger"
	"mrbox/core/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the status API.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/status")
	group.Get("/health", h.HandleHealth)
	group.Get("/catalogue", h.HandleCatalogue)
	group.Get("/divergent", h.HandleDivergent)
	group.Get("/verify", h.HandleVerify)
	group.Post("/verify/repair", h.HandleRepair)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// HandleHealth reports the catalogue size and the divergent objects.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	health, err := h.service.Health(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "error", "error": err.Error()})
	}
	return c.JSON(health)
}

// HandleCatalogue lists catalogue rows, optionally under ?prefix=.
func (h *Handler) HandleCatalogue(c *fiber.Ctx) error {
	rows, err := h.service.Catalogue(c.Context(), c.Query("prefix"))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Catalogue listing failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"count": len(rows), "entries": rows})
}

// HandleDivergent lists the File rows whose stored checksums differ.
func (h *Handler) HandleDivergent(c *fiber.Ctx) error {
	rows, err := h.service.Divergent(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Divergence listing failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"count": len(rows), "entries": rows})
}

// HandleVerify returns the cached verification report.
// ?refresh=true forces a new sweep. The sweep never writes.
func (h *Handler) HandleVerify(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Verify(c.Context(), c.Query("refresh") == "true")
	if err != nil {
		l.Error("Verification failed", zap.Error(err))
		return internalError(c, err)
	}

	if n := len(report.Findings); n > 0 {
		l.Warn("Verification findings", zap.Int("findings", n))
	}
	return c.JSON(report)
}

// HandleRepair queues a re-upload of every divergent file and answers before
// the uploads run.
func (h *Handler) HandleRepair(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	res, err := h.service.Repair(c.Context())
	if err != nil {
		if errors.Is(err, ErrNoRepairer) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Repair failed", zap.Error(err))
		if res != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to queue repairs",
				"details": err.Error(),
				"queued":  res.Queued,
			})
		}
		return internalError(c, err)
	}

	l.Info("Repairs queued", zap.Int("count", len(res.Queued)))
	return c.Status(fiber.StatusAccepted).JSON(res)
}
