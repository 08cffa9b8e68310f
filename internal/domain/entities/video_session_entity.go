package entities

import (
	"time"

	"github.com/google/uuid"
)

// VideoSession binds a consultation to the external video room created for
// it. The unique index on ConsultationID is the correctness boundary for
// concurrent first joins: whichever transaction inserts first owns the room,
// every other speculatively created room is compensated away.
type VideoSession struct {
	ID             uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ConsultationID uuid.UUID `json:"consultation_id" db:"consultation_id" gorm:"type:uuid;not null;uniqueIndex"`
	Provider       string    `json:"provider" db:"provider" gorm:"type:varchar(32);not null"`
	RoomName       string    `json:"room_name" db:"room_name" gorm:"type:varchar(128);not null;uniqueIndex"`
	RoomURL        string    `json:"room_url" db:"room_url" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" db:"created_at" gorm:"not null"`
}
