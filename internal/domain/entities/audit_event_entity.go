package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditEventType identifies the kind of state-affecting action an audit row
// documents.
type AuditEventType string

const (
	AuditConsultCreated       AuditEventType = "CONSULT_CREATED"
	AuditConsultStatusChanged AuditEventType = "CONSULT_STATUS_CHANGED"
	AuditDoctorAssigned       AuditEventType = "DOCTOR_ASSIGNED"
	AuditConsultRescheduled   AuditEventType = "CONSULT_RESCHEDULED"
	AuditPaymentInitiated     AuditEventType = "PAYMENT_INITIATED"
	AuditJoinTokenMinted      AuditEventType = "JOIN_TOKEN_MINTED"
)

// AuditEvent is one immutable row of the audit trail. Rows are only ever
// appended, and only inside the same transaction as the mutation they
// document: a mutation whose audit row cannot commit does not commit either.
// There is deliberately no update or delete path for this entity anywhere in
// the codebase.
type AuditEvent struct {
	ID             uuid.UUID      `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ActorUserID    uuid.UUID      `json:"actor_user_id" db:"actor_user_id" gorm:"type:uuid;not null;index"`
	ConsultationID uuid.UUID      `json:"consultation_id" db:"consultation_id" gorm:"type:uuid;not null;index"`
	EventType      AuditEventType `json:"event_type" db:"event_type" gorm:"type:varchar(64);not null;index"`
	Metadata       datatypes.JSON `json:"metadata,omitempty" db:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at" gorm:"not null;index"`
}

// NewAuditEvent builds an audit row for the given actor, consultation and
// event type. The metadata map is marshalled into the jsonb column; a nil map
// leaves the column empty. Marshalling of plain string/number maps cannot
// fail, so the error is swallowed here rather than pushed onto every caller.
func NewAuditEvent(actorUserID, consultationID uuid.UUID, eventType AuditEventType, metadata map[string]any) *AuditEvent {
	ev := &AuditEvent{
		ID:             uuid.New(),
		ActorUserID:    actorUserID,
		ConsultationID: consultationID,
		EventType:      eventType,
		CreatedAt:      time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			ev.Metadata = datatypes.JSON(raw)
		}
	}
	return ev
}

// MetadataMap decodes the jsonb metadata back into a map. Returns an empty
// map when no metadata was recorded.
func (e *AuditEvent) MetadataMap() map[string]any {
	out := map[string]any{}
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &out)
	}
	return out
}
