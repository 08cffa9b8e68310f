package dtos

import "time"

// CreateConsultationRequest is the payload for booking a new consultation.
// ScheduledStartAt is optional; when present it must lie strictly in the
// future at booking time.
type CreateConsultationRequest struct {
	Specialty        string     `json:"specialty" validate:"required"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty"`
}
