package services

import (
	"context"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
)

// JoinServiceContract defines the call-join orchestration.
type JoinServiceContract interface {
	// Join authorizes the caller for the consultation, lazily provisions the
	// external video room on the first successful join (transitioning the
	// consultation to IN_CALL in the same atomic unit), and mints a fresh
	// short-lived access token. Repeat joins reuse the existing room; rooms
	// are expensive, tokens are cheap.
	Join(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.JoinResponse, error)
}
