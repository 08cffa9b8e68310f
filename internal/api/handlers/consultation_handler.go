package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/api/middleware"
	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/services"
)

// ConsultationHandler serves the consultation lifecycle routes: booking,
// listing, updates, call join and payment.
type ConsultationHandler struct {
	consultations services.ConsultationServiceContract
	join          services.JoinServiceContract
	payments      services.PaymentServiceContract
	logger        *zap.Logger
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(
	consultations services.ConsultationServiceContract,
	join services.JoinServiceContract,
	payments services.PaymentServiceContract,
	logger *zap.Logger,
) *ConsultationHandler {
	return &ConsultationHandler{
		consultations: consultations,
		join:          join,
		payments:      payments,
		logger:        logger,
	}
}

// caller returns the identity resolved by the middleware. A missing caller
// means the route was mounted without the identity middleware, which is a
// wiring bug, but it still renders as UNAUTHORIZED rather than panicking.
func caller(c *fiber.Ctx) (entities.Caller, error) {
	resolved, ok := middleware.CallerFromCtx(c)
	if !ok {
		return entities.Caller{}, apperrors.New(apperrors.CodeUnauthorized, "caller identity not resolved")
	}
	return resolved, nil
}

// consultationID parses the :id path parameter.
func consultationID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.CodeValidation, "consultation id must be a uuid")
	}
	return id, nil
}

func (h *ConsultationHandler) Create(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}

	var req dtos.CreateConsultationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "could not parse request body")
	}

	created, err := h.consultations.Create(c.Context(), actor, &req)
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ConsultationHandler) List(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}

	consultations, err := h.consultations.List(c.Context(), actor)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(fiber.Map{"consultations": consultations})
}

func (h *ConsultationHandler) Get(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}
	id, err := consultationID(c)
	if err != nil {
		return renderError(c, err)
	}

	consultation, err := h.consultations.GetByID(c.Context(), actor, id)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(consultation)
}

func (h *ConsultationHandler) Update(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}
	id, err := consultationID(c)
	if err != nil {
		return renderError(c, err)
	}

	var req dtos.UpdateConsultationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "could not parse request body")
	}

	updated, err := h.consultations.Update(c.Context(), actor, id, &req)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(updated)
}

func (h *ConsultationHandler) Join(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}
	id, err := consultationID(c)
	if err != nil {
		return renderError(c, err)
	}

	joined, err := h.join.Join(c.Context(), actor, id)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(joined)
}

func (h *ConsultationHandler) InitiatePayment(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}
	id, err := consultationID(c)
	if err != nil {
		return renderError(c, err)
	}

	initiated, err := h.payments.InitiateCheckout(c.Context(), actor, id)
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(initiated)
}

func (h *ConsultationHandler) PaymentStatus(c *fiber.Ctx) error {
	actor, err := caller(c)
	if err != nil {
		return renderError(c, err)
	}
	id, err := consultationID(c)
	if err != nil {
		return renderError(c, err)
	}

	status, err := h.payments.GetStatus(c.Context(), actor, id)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(status)
}

// RegisterConsultationRoutes mounts the consultation routes behind the
// identity middleware.
func RegisterConsultationRoutes(app *fiber.App, h *ConsultationHandler, identity fiber.Handler) {
	group := app.Group("/consultations", identity)
	group.Post("/", h.Create)
	group.Get("/", h.List)
	group.Get("/:id", h.Get)
	group.Patch("/:id", h.Update)
	group.Post("/:id/join", h.Join)
	group.Post("/:id/payment", h.InitiatePayment)
	group.Get("/:id/payment/status", h.PaymentStatus)
}
