package entities

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is one checkout attempt against a consultation. A consultation may
// accumulate several rows (retries, abandoned checkouts); it counts as paid
// as soon as at least one PAID row exists. Rows are created PENDING by the
// payment initiator and finalized by the provider confirmation path.
type Payment struct {
	ID                 uuid.UUID     `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ConsultationID     uuid.UUID     `json:"consultation_id" db:"consultation_id" gorm:"type:uuid;not null;index"`
	AmountCents        int64         `json:"amount_cents" db:"amount_cents" gorm:"not null"`
	Currency           string        `json:"currency" db:"currency" gorm:"type:varchar(8);not null"`
	Status             PaymentStatus `json:"status" db:"status" gorm:"type:varchar(16);not null;index"`
	ProviderCheckoutID string        `json:"provider_checkout_id" db:"provider_checkout_id" gorm:"type:varchar(128);index"`
	IdempotencyKey     string        `json:"idempotency_key" db:"idempotency_key" gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at" gorm:"not null"`
}
