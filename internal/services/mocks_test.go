package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/repositories"
)

// --- MockConsultationStore ---
// Compile-time check that the mock satisfies the store contract.
var _ repositories.ConsultationStoreContract = (*MockConsultationStore)(nil)

// MockConsultationStore is a function-field mock of the store contract. Each
// method delegates to its Func when set and otherwise falls back to the
// embedded in-memory store, so tests only override the paths they care about
// (usually to inject commit failures).
type MockConsultationStore struct {
	Backing *repositories.InMemoryConsultationStore

	CreateConsultationFunc   func(ctx context.Context, c *entities.Consultation, audit *entities.AuditEvent) error
	GetConsultationByIDFunc  func(ctx context.Context, id uuid.UUID) (*entities.Consultation, error)
	ListConsultationsFunc    func(ctx context.Context, filter repositories.ConsultationFilter) ([]*entities.Consultation, error)
	UpdateConsultationFunc   func(ctx context.Context, c *entities.Consultation, expectedUpdatedAt *time.Time, audits []*entities.AuditEvent) error
	GetVideoSessionFunc      func(ctx context.Context, consultationID uuid.UUID) (*entities.VideoSession, error)
	ActivateVideoSessionFunc func(ctx context.Context, session *entities.VideoSession, c *entities.Consultation, audit *entities.AuditEvent) error
	CreatePaymentFunc        func(ctx context.Context, p *entities.Payment, audit *entities.AuditEvent) error
	HasPaidPaymentFunc       func(ctx context.Context, consultationID uuid.UUID) (bool, error)
	AppendAuditEventFunc     func(ctx context.Context, event *entities.AuditEvent) error
	ListAuditEventsFunc      func(ctx context.Context, filter repositories.AuditFilter) ([]*entities.AuditEvent, int64, error)

	ActivateVideoSessionCallCount int32
	CreatePaymentCallCount        int32
}

// NewMockConsultationStore creates a mock backed by a fresh in-memory store.
func NewMockConsultationStore() *MockConsultationStore {
	return &MockConsultationStore{Backing: repositories.NewInMemoryConsultationStore()}
}

func (m *MockConsultationStore) CreateConsultation(ctx context.Context, c *entities.Consultation, audit *entities.AuditEvent) error {
	if m.CreateConsultationFunc != nil {
		return m.CreateConsultationFunc(ctx, c, audit)
	}
	return m.Backing.CreateConsultation(ctx, c, audit)
}

func (m *MockConsultationStore) GetConsultationByID(ctx context.Context, id uuid.UUID) (*entities.Consultation, error) {
	if m.GetConsultationByIDFunc != nil {
		return m.GetConsultationByIDFunc(ctx, id)
	}
	return m.Backing.GetConsultationByID(ctx, id)
}

func (m *MockConsultationStore) ListConsultations(ctx context.Context, filter repositories.ConsultationFilter) ([]*entities.Consultation, error) {
	if m.ListConsultationsFunc != nil {
		return m.ListConsultationsFunc(ctx, filter)
	}
	return m.Backing.ListConsultations(ctx, filter)
}

func (m *MockConsultationStore) UpdateConsultation(ctx context.Context, c *entities.Consultation, expectedUpdatedAt *time.Time, audits []*entities.AuditEvent) error {
	if m.UpdateConsultationFunc != nil {
		return m.UpdateConsultationFunc(ctx, c, expectedUpdatedAt, audits)
	}
	return m.Backing.UpdateConsultation(ctx, c, expectedUpdatedAt, audits)
}

func (m *MockConsultationStore) GetVideoSession(ctx context.Context, consultationID uuid.UUID) (*entities.VideoSession, error) {
	if m.GetVideoSessionFunc != nil {
		return m.GetVideoSessionFunc(ctx, consultationID)
	}
	return m.Backing.GetVideoSession(ctx, consultationID)
}

func (m *MockConsultationStore) ActivateVideoSession(ctx context.Context, session *entities.VideoSession, c *entities.Consultation, audit *entities.AuditEvent) error {
	atomic.AddInt32(&m.ActivateVideoSessionCallCount, 1)
	if m.ActivateVideoSessionFunc != nil {
		return m.ActivateVideoSessionFunc(ctx, session, c, audit)
	}
	return m.Backing.ActivateVideoSession(ctx, session, c, audit)
}

func (m *MockConsultationStore) CreatePayment(ctx context.Context, p *entities.Payment, audit *entities.AuditEvent) error {
	atomic.AddInt32(&m.CreatePaymentCallCount, 1)
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, p, audit)
	}
	return m.Backing.CreatePayment(ctx, p, audit)
}

func (m *MockConsultationStore) HasPaidPayment(ctx context.Context, consultationID uuid.UUID) (bool, error) {
	if m.HasPaidPaymentFunc != nil {
		return m.HasPaidPaymentFunc(ctx, consultationID)
	}
	return m.Backing.HasPaidPayment(ctx, consultationID)
}

func (m *MockConsultationStore) AppendAuditEvent(ctx context.Context, event *entities.AuditEvent) error {
	if m.AppendAuditEventFunc != nil {
		return m.AppendAuditEventFunc(ctx, event)
	}
	return m.Backing.AppendAuditEvent(ctx, event)
}

func (m *MockConsultationStore) ListAuditEvents(ctx context.Context, filter repositories.AuditFilter) ([]*entities.AuditEvent, int64, error) {
	if m.ListAuditEventsFunc != nil {
		return m.ListAuditEventsFunc(ctx, filter)
	}
	return m.Backing.ListAuditEvents(ctx, filter)
}

// --- MockUserRepository ---
var _ repositories.UserRepositoryContract = (*MockUserRepository)(nil)

// MockUserRepository is a function-field mock of the user repository.
type MockUserRepository struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*entities.User, error)
	CreateFunc  func(ctx context.Context, user *entities.User) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented in mock")
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

// --- test fixture helpers ---

const testTokenTTL = 15 * time.Minute

var testTokenSecret = []byte("test-room-token-secret")

// seedConsultation inserts a consultation straight into the backing store,
// bypassing the service layer, and returns the stored row.
func seedConsultation(t interface{ Fatalf(string, ...any) }, store repositories.ConsultationStoreContract, c *entities.Consultation) *entities.Consultation {
	audit := entities.NewAuditEvent(c.PatientID, c.ID, entities.AuditConsultCreated, nil)
	if err := store.CreateConsultation(context.Background(), c, audit); err != nil {
		t.Fatalf("seeding consultation: %v", err)
	}
	stored, err := store.GetConsultationByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("reloading seeded consultation: %v", err)
	}
	return stored
}

// auditEventsOfType filters the store's audit trail by event type.
func auditEventsOfType(store repositories.ConsultationStoreContract, consultationID uuid.UUID, eventType entities.AuditEventType) []*entities.AuditEvent {
	events, _, err := store.ListAuditEvents(context.Background(), repositories.AuditFilter{
		ConsultationID: &consultationID,
		EventType:      eventType,
		Limit:          200,
	})
	if err != nil {
		return nil
	}
	return events
}

// fixedClock returns a now func pinned to the given instant.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// testSlotLocker records acquire attempts. Acquire can be forced to fail to
// prove the caller proceeds without the advisory lock.
type testSlotLocker struct {
	Fail         bool
	AcquireCalls int32
}

var _ adapters.SlotLocker = (*testSlotLocker)(nil)

func (l *testSlotLocker) Acquire(context.Context, string, time.Duration) (func(), bool) {
	atomic.AddInt32(&l.AcquireCalls, 1)
	return func() {}, !l.Fail
}
