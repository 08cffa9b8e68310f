package entities

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of caller roles. Capability checks compare against
// these values; handlers and services never compare raw role strings.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	return r == RolePatient || r == RoleDoctor || r == RoleAdmin
}

// User is a platform account. The consultation core only needs identity and
// role; profile data lives with the account service.
type User struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name      string    `json:"name" db:"name" gorm:"not null"`
	Email     string    `json:"email" db:"email" gorm:"unique;not null"`
	Role      Role      `json:"role" db:"role" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"not null"`
}

// Caller is the resolved identity of the requester, produced by the identity
// middleware and passed through every service operation.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

// IsPatient reports whether the caller holds the patient role.
func (c Caller) IsPatient() bool { return c.Role == RolePatient }

// IsDoctor reports whether the caller holds the doctor role.
func (c Caller) IsDoctor() bool { return c.Role == RoleDoctor }

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
