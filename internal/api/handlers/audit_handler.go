package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/services"
)

// AuditHandler serves the admin-only audit trail listing.
type AuditHandler struct {
	audit  services.AuditServiceContract
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit services.AuditServiceContract, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

func (h *AuditHandler) List(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}

	query := &dtos.AuditEventQuery{
		EventType: c.Query("event_type"),
		Limit:     c.QueryInt("limit"),
		Offset:    c.QueryInt("offset"),
	}
	if raw := c.Query("actor_user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "actor_user_id must be a uuid")
		}
		query.ActorUserID = &id
	}
	if raw := c.Query("consultation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "consultation_id must be a uuid")
		}
		query.ConsultationID = &id
	}

	listed, err := h.audit.List(c.Context(), actor, query)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(listed)
}

// RegisterAuditRoutes mounts the audit trail routes behind the identity
// middleware. The admin gate itself lives in the service.
func RegisterAuditRoutes(app *fiber.App, h *AuditHandler, identity fiber.Handler) {
	app.Get("/audit-events", identity, h.List)
}

// RegisterHealthRoutes mounts the unauthenticated liveness probe.
func RegisterHealthRoutes(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
