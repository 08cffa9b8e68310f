package dtos

import (
	"time"

	"github.com/google/uuid"
)

// UpdateConsultationRequest is the PATCH payload for a consultation. All
// fields are optional; absent fields are left untouched. UpdatedAt, when
// supplied, is the caller's last observed write instant and arms the
// optimistic concurrency check: the write is rejected with a conflict when
// the stored value is newer.
type UpdateConsultationRequest struct {
	Status           *string    `json:"status,omitempty"`
	DoctorID         *uuid.UUID `json:"doctor_id,omitempty"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Empty reports whether the request carries no mutation at all.
func (r *UpdateConsultationRequest) Empty() bool {
	return r.Status == nil && r.DoctorID == nil && r.ScheduledStartAt == nil
}
