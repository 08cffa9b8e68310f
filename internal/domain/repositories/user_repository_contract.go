package repositories

import (
	"context"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

// UserRepositoryContract resolves platform accounts. The consultation core
// only reads users: it needs to verify that a doctor-assignment target
// actually holds the doctor role.
type UserRepositoryContract interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	Create(ctx context.Context, user *entities.User) error
}
