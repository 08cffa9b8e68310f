package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

var _ UserRepositoryContract = (*InMemoryUserRepository)(nil)

// InMemoryUserRepository keeps users in a mutex-guarded map. Used by the test
// suite and by local runs without DATABASE_URL.
type InMemoryUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
}

// NewInMemoryUserRepository creates an empty in-memory user repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[uuid.UUID]*entities.User)}
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}
