package services

import (
	"context"

	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
)

// AuditServiceContract exposes the audit trail to administrators. The trail
// itself is written by the store transactions of the mutating operations;
// this service only reads.
type AuditServiceContract interface {
	// List returns audit rows matching the query, newest first, admin-only.
	List(ctx context.Context, caller entities.Caller, query *dtos.AuditEventQuery) (*dtos.AuditEventListResponse, error)
}
