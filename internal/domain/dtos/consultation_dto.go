package dtos

import (
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

// ConsultationDTO is the API representation of a consultation. Status is the
// persisted state; DisplayStatus additionally folds in the read-time EXPIRED
// derivation so clients do not re-implement the window arithmetic.
type ConsultationDTO struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	DoctorID         *uuid.UUID `json:"doctor_id,omitempty"`
	Specialty        string     `json:"specialty"`
	Status           string     `json:"status"`
	DisplayStatus    string     `json:"display_status"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewConsultationDTO maps an entity to its API shape. displayStatus comes
// from lifecycle.EffectiveStatus; the mapper does not compute it so it stays
// clock-free.
func NewConsultationDTO(c *entities.Consultation, displayStatus entities.ConsultationStatus) *ConsultationDTO {
	return &ConsultationDTO{
		ID:               c.ID,
		PatientID:        c.PatientID,
		DoctorID:         c.DoctorID,
		Specialty:        string(c.Specialty),
		Status:           string(c.Status),
		DisplayStatus:    string(displayStatus),
		ScheduledStartAt: c.ScheduledStartAt,
		StartedAt:        c.StartedAt,
		EndedAt:          c.EndedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
