package services

import (
	"context"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
)

// ConsultationServiceContract defines the booking and lifecycle operations on
// consultations. Every operation takes the resolved caller and enforces its
// own role and ownership gates; handlers do no authorization of their own.
type ConsultationServiceContract interface {
	// Create books a new consultation for the calling patient. The specialty
	// must be a known value and the scheduled start, when given, must lie
	// strictly in the future.
	Create(ctx context.Context, caller entities.Caller, req *dtos.CreateConsultationRequest) (*dtos.ConsultationDTO, error)

	// GetByID returns one consultation. Accessible to the patient, the
	// assigned doctor and admins. The returned DTO carries the display status
	// with the read-time EXPIRED derivation applied.
	GetByID(ctx context.Context, caller entities.Caller, id uuid.UUID) (*dtos.ConsultationDTO, error)

	// List returns the consultations visible to the caller: patients see
	// their own, doctors the ones assigned to them, admins all.
	List(ctx context.Context, caller entities.Caller) ([]*dtos.ConsultationDTO, error)

	// Update applies a partial update. Status and schedule changes require a
	// doctor or admin caller; doctor assignment requires an admin caller and
	// a target holding the doctor role. When the request carries the caller's
	// last observed updated_at, a newer stored value rejects the write with a
	// conflict. Every applied change appends its audit row in the same store
	// transaction.
	Update(ctx context.Context, caller entities.Caller, id uuid.UUID, req *dtos.UpdateConsultationRequest) (*dtos.ConsultationDTO, error)
}
