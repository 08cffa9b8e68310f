package dtos

import (
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

// AuditEventDTO is the API representation of one audit trail row.
type AuditEventDTO struct {
	ID             uuid.UUID      `json:"id"`
	ActorUserID    uuid.UUID      `json:"actor_user_id"`
	ConsultationID uuid.UUID      `json:"consultation_id"`
	EventType      string         `json:"event_type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AuditEventQuery carries the admin listing filters. Zero values mean "no
// filter" for the respective field.
type AuditEventQuery struct {
	EventType      string
	ActorUserID    *uuid.UUID
	ConsultationID *uuid.UUID
	Limit          int
	Offset         int
}

// AuditEventListResponse is a paginated audit listing.
type AuditEventListResponse struct {
	Events []*AuditEventDTO `json:"events"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// NewAuditEventDTO maps an entity row to its API shape.
func NewAuditEventDTO(e *entities.AuditEvent) *AuditEventDTO {
	return &AuditEventDTO{
		ID:             e.ID,
		ActorUserID:    e.ActorUserID,
		ConsultationID: e.ConsultationID,
		EventType:      string(e.EventType),
		Metadata:       e.MetadataMap(),
		CreatedAt:      e.CreatedAt,
	}
}
