package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

// Sentinel errors surfaced by store implementations. Services translate
// these into the client-facing error taxonomy.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleConsultation is returned when the caller-supplied updated_at
	// no longer matches the stored row (optimistic concurrency conflict).
	ErrStaleConsultation = errors.New("consultation was modified by another writer")
	// ErrVideoSessionExists is returned when the unique constraint on
	// video_sessions.consultation_id rejects an insert: a concurrent caller
	// already provisioned the room. The store's constraint, not the caller,
	// is the arbiter of who created the session.
	ErrVideoSessionExists = errors.New("video session already exists for consultation")
)

// ConsultationFilter narrows consultation listings.
type ConsultationFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

// AuditFilter narrows audit listings. Zero values mean "no filter" for the
// respective field. Limit is capped by the implementation.
type AuditFilter struct {
	EventType      entities.AuditEventType
	ActorUserID    *uuid.UUID
	ConsultationID *uuid.UUID
	Limit          int
	Offset         int
}

// ConsultationStoreContract is the atomic persistence boundary for the
// consultation lifecycle. Every method that takes audit events commits them
// in the same transaction as the mutation: either the full unit becomes
// durable or none of it does. Audit rows are append-only; no method updates
// or deletes them.
type ConsultationStoreContract interface {
	// CreateConsultation persists a new consultation together with its
	// CONSULT_CREATED audit row.
	CreateConsultation(ctx context.Context, c *entities.Consultation, audit *entities.AuditEvent) error

	// GetConsultationByID returns the consultation or ErrNotFound.
	GetConsultationByID(ctx context.Context, id uuid.UUID) (*entities.Consultation, error)

	// ListConsultations returns consultations matching the filter, newest
	// first.
	ListConsultations(ctx context.Context, filter ConsultationFilter) ([]*entities.Consultation, error)

	// UpdateConsultation persists the mutable consultation fields (status,
	// doctor, schedule, call timestamps) together with the supplied audit
	// rows. When expectedUpdatedAt is non-nil and differs from the stored
	// value the whole unit is rejected with ErrStaleConsultation. On success
	// c is refreshed with the stored row (including the new UpdatedAt).
	UpdateConsultation(ctx context.Context, c *entities.Consultation, expectedUpdatedAt *time.Time, audits []*entities.AuditEvent) error

	// GetVideoSession returns the session bound to the consultation, or
	// ErrNotFound when the room has not been provisioned yet.
	GetVideoSession(ctx context.Context, consultationID uuid.UUID) (*entities.VideoSession, error)

	// ActivateVideoSession performs the first-join atomic unit: insert the
	// session row, transition the consultation PAID -> IN_CALL with its
	// startedAt stamp, and append the status-change audit row. A unique
	// violation on consultation_id rolls the unit back and surfaces
	// ErrVideoSessionExists; a concurrent status change rolls it back with
	// ErrStaleConsultation.
	ActivateVideoSession(ctx context.Context, session *entities.VideoSession, c *entities.Consultation, audit *entities.AuditEvent) error

	// CreatePayment persists a payment attempt together with its
	// PAYMENT_INITIATED audit row.
	CreatePayment(ctx context.Context, p *entities.Payment, audit *entities.AuditEvent) error

	// HasPaidPayment reports whether at least one PAID payment row exists
	// for the consultation. Pure read, no side effects.
	HasPaidPayment(ctx context.Context, consultationID uuid.UUID) (bool, error)

	// AppendAuditEvent appends a standalone audit row for operations whose
	// only durable effect is the audit record itself (e.g. token mints).
	AppendAuditEvent(ctx context.Context, event *entities.AuditEvent) error

	// ListAuditEvents returns matching audit rows (newest first) and the
	// total match count for pagination.
	ListAuditEvents(ctx context.Context, filter AuditFilter) ([]*entities.AuditEvent, int64, error)
}
