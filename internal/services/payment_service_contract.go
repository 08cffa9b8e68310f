package services

import (
	"context"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
)

// PaymentServiceContract defines checkout initiation and the poll-based
// confirmation read. There is deliberately no push primitive: callers poll
// GetStatus on a fixed interval until paid or the user abandons.
type PaymentServiceContract interface {
	// InitiateCheckout computes the fee for the consultation's specialty,
	// creates a checkout session with a fresh idempotency key and persists a
	// PENDING payment row referencing the provider checkout id. Only the
	// owning patient may initiate payment, enforced before any external call.
	InitiateCheckout(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.PaymentInitiationResponse, error)

	// GetStatus reports whether at least one PAID payment row exists. Pure
	// read, no side effects.
	GetStatus(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.PaymentStatusResponse, error)
}
