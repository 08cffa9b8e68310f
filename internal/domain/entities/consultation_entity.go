package entities

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationStatus enumerates the lifecycle states of a consultation.
// Transitions between states are governed by the lifecycle package; nothing
// else in the system is allowed to move a consultation between states.
type ConsultationStatus string

const (
	StatusCreated        ConsultationStatus = "CREATED"
	StatusPaymentPending ConsultationStatus = "PAYMENT_PENDING"
	StatusPaid           ConsultationStatus = "PAID"
	StatusPaymentFailed  ConsultationStatus = "PAYMENT_FAILED"
	StatusInCall         ConsultationStatus = "IN_CALL"
	StatusCompleted      ConsultationStatus = "COMPLETED"
	StatusCancelled      ConsultationStatus = "CANCELLED"
	StatusExpired        ConsultationStatus = "EXPIRED"
)

// KnownStatuses lists every status value in a stable order. Used by
// validation and by the exhaustive transition tests.
func KnownStatuses() []ConsultationStatus {
	return []ConsultationStatus{
		StatusCreated,
		StatusPaymentPending,
		StatusPaid,
		StatusPaymentFailed,
		StatusInCall,
		StatusCompleted,
		StatusCancelled,
		StatusExpired,
	}
}

// IsValidStatus reports whether s is one of the known status values.
func IsValidStatus(s ConsultationStatus) bool {
	for _, known := range KnownStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Specialty is the medical specialty a consultation is booked for.
type Specialty string

const (
	SpecialtyGeneralPractice Specialty = "GENERAL_PRACTICE"
	SpecialtyCardiology      Specialty = "CARDIOLOGY"
	SpecialtyDermatology     Specialty = "DERMATOLOGY"
	SpecialtyPediatrics      Specialty = "PEDIATRICS"
	SpecialtyPsychiatry      Specialty = "PSYCHIATRY"
)

// KnownSpecialties lists every bookable specialty.
func KnownSpecialties() []Specialty {
	return []Specialty{
		SpecialtyGeneralPractice,
		SpecialtyCardiology,
		SpecialtyDermatology,
		SpecialtyPediatrics,
		SpecialtyPsychiatry,
	}
}

// IsValidSpecialty reports whether s is one of the known specialties.
func IsValidSpecialty(s Specialty) bool {
	for _, known := range KnownSpecialties() {
		if s == known {
			return true
		}
	}
	return false
}

// Consultation is a patient-doctor telehealth engagement record.
//
// UpdatedAt doubles as the optimistic concurrency marker: writers may supply
// the last UpdatedAt they observed and the store rejects the write when the
// stored value is newer. StartedAt is stamped exactly once on entry to
// IN_CALL, EndedAt exactly once on entry to COMPLETED. Consultations are
// never hard-deleted; CANCELLED, COMPLETED and EXPIRED are terminal states.
type Consultation struct {
	ID               uuid.UUID          `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PatientID        uuid.UUID          `json:"patient_id" db:"patient_id" gorm:"type:uuid;not null;index"`
	DoctorID         *uuid.UUID         `json:"doctor_id,omitempty" db:"doctor_id" gorm:"type:uuid;index"`
	Specialty        Specialty          `json:"specialty" db:"specialty" gorm:"type:varchar(32);not null"`
	Status           ConsultationStatus `json:"status" db:"status" gorm:"type:varchar(32);not null;index"`
	ScheduledStartAt *time.Time         `json:"scheduled_start_at,omitempty" db:"scheduled_start_at"`
	StartedAt        *time.Time         `json:"started_at,omitempty" db:"started_at"`
	EndedAt          *time.Time         `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at" gorm:"not null"`
}

// HasDoctor reports whether a doctor is assigned.
func (c *Consultation) HasDoctor() bool {
	return c.DoctorID != nil && *c.DoctorID != uuid.Nil
}

// IsParticipant reports whether userID is the patient or the assigned doctor.
func (c *Consultation) IsParticipant(userID uuid.UUID) bool {
	if c.PatientID == userID {
		return true
	}
	return c.HasDoctor() && *c.DoctorID == userID
}
