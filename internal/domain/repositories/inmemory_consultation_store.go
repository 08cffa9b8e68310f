package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/entities"
)

var _ ConsultationStoreContract = (*InMemoryConsultationStore)(nil)

// InMemoryConsultationStore implements the store contract on top of
// mutex-guarded maps. It mirrors the transactional semantics of the Postgres
// store: every multi-row unit happens under one lock acquisition, including
// the video-session uniqueness constraint and the optimistic updated_at
// check, so the orchestration logic can be exercised without a database.
// Used by the test suite and by local runs without DATABASE_URL.
type InMemoryConsultationStore struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*entities.Consultation
	sessions      map[uuid.UUID]*entities.VideoSession // keyed by consultation id
	payments      map[uuid.UUID][]*entities.Payment    // keyed by consultation id
	auditEvents   []*entities.AuditEvent
}

// NewInMemoryConsultationStore creates an empty in-memory store.
func NewInMemoryConsultationStore() *InMemoryConsultationStore {
	return &InMemoryConsultationStore{
		consultations: make(map[uuid.UUID]*entities.Consultation),
		sessions:      make(map[uuid.UUID]*entities.VideoSession),
		payments:      make(map[uuid.UUID][]*entities.Payment),
	}
}

func copyConsultation(c *entities.Consultation) *entities.Consultation {
	out := *c
	if c.DoctorID != nil {
		v := *c.DoctorID
		out.DoctorID = &v
	}
	if c.ScheduledStartAt != nil {
		v := *c.ScheduledStartAt
		out.ScheduledStartAt = &v
	}
	if c.StartedAt != nil {
		v := *c.StartedAt
		out.StartedAt = &v
	}
	if c.EndedAt != nil {
		v := *c.EndedAt
		out.EndedAt = &v
	}
	return &out
}

func copySession(s *entities.VideoSession) *entities.VideoSession {
	out := *s
	return &out
}

// nextWriteStamp returns a write instant strictly after prev so two writes
// within the same clock tick still produce distinct optimistic markers.
func nextWriteStamp(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func (s *InMemoryConsultationStore) CreateConsultation(_ context.Context, c *entities.Consultation, audit *entities.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	s.consultations[c.ID] = copyConsultation(c)
	s.appendAuditLocked(audit)
	return nil
}

func (s *InMemoryConsultationStore) GetConsultationByID(_ context.Context, id uuid.UUID) (*entities.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.consultations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConsultation(stored), nil
}

func (s *InMemoryConsultationStore) ListConsultations(_ context.Context, filter ConsultationFilter) ([]*entities.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entities.Consultation
	for _, stored := range s.consultations {
		if filter.PatientID != nil && stored.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && (stored.DoctorID == nil || *stored.DoctorID != *filter.DoctorID) {
			continue
		}
		out = append(out, copyConsultation(stored))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryConsultationStore) UpdateConsultation(_ context.Context, c *entities.Consultation, expectedUpdatedAt *time.Time, audits []*entities.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.consultations[c.ID]
	if !ok {
		return ErrNotFound
	}
	if expectedUpdatedAt != nil && !stored.UpdatedAt.Equal(*expectedUpdatedAt) {
		return ErrStaleConsultation
	}

	updated := copyConsultation(c)
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = nextWriteStamp(stored.UpdatedAt)
	s.consultations[c.ID] = updated

	for _, audit := range audits {
		s.appendAuditLocked(audit)
	}
	*c = *copyConsultation(updated)
	return nil
}

func (s *InMemoryConsultationStore) GetVideoSession(_ context.Context, consultationID uuid.UUID) (*entities.VideoSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[consultationID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(stored), nil
}

func (s *InMemoryConsultationStore) ActivateVideoSession(_ context.Context, session *entities.VideoSession, c *entities.Consultation, audit *entities.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ConsultationID]; exists {
		return ErrVideoSessionExists
	}
	stored, ok := s.consultations[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != entities.StatusPaid {
		return ErrStaleConsultation
	}

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.sessions[session.ConsultationID] = copySession(session)

	updated := copyConsultation(stored)
	updated.Status = c.Status
	if c.StartedAt != nil {
		v := *c.StartedAt
		updated.StartedAt = &v
	}
	updated.UpdatedAt = nextWriteStamp(stored.UpdatedAt)
	s.consultations[c.ID] = updated

	s.appendAuditLocked(audit)
	*c = *copyConsultation(updated)
	return nil
}

func (s *InMemoryConsultationStore) CreatePayment(_ context.Context, p *entities.Payment, audit *entities.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	stored := *p
	s.payments[p.ConsultationID] = append(s.payments[p.ConsultationID], &stored)
	s.appendAuditLocked(audit)
	return nil
}

// PaymentsFor returns copies of every payment row recorded for the
// consultation, oldest first. Not part of the store contract; the external
// settlement path and the test suite inspect attempts through it.
func (s *InMemoryConsultationStore) PaymentsFor(consultationID uuid.UUID) []*entities.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Payment, 0, len(s.payments[consultationID]))
	for _, p := range s.payments[consultationID] {
		copied := *p
		out = append(out, &copied)
	}
	return out
}

// MarkPaymentPaid flips the payment row with the given provider checkout id
// to PAID. It stands in for the provider's settlement confirmation path,
// which lives outside this core; the test suite and the local demo use it to
// exercise status polling. Reports whether a matching row was found.
func (s *InMemoryConsultationStore) MarkPaymentPaid(consultationID uuid.UUID, providerCheckoutID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments[consultationID] {
		if p.ProviderCheckoutID == providerCheckoutID {
			p.Status = entities.PaymentStatusPaid
			p.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

func (s *InMemoryConsultationStore) HasPaidPayment(_ context.Context, consultationID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments[consultationID] {
		if p.Status == entities.PaymentStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryConsultationStore) AppendAuditEvent(_ context.Context, event *entities.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendAuditLocked(event)
	return nil
}

// appendAuditLocked appends a copy of the event. Callers hold s.mu.
func (s *InMemoryConsultationStore) appendAuditLocked(event *entities.AuditEvent) {
	if event == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	stored := *event
	s.auditEvents = append(s.auditEvents, &stored)
}

func (s *InMemoryConsultationStore) ListAuditEvents(_ context.Context, filter AuditFilter) ([]*entities.AuditEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entities.AuditEvent
	for _, ev := range s.auditEvents {
		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if filter.ActorUserID != nil && ev.ActorUserID != *filter.ActorUserID {
			continue
		}
		if filter.ConsultationID != nil && ev.ConsultationID != *filter.ConsultationID {
			continue
		}
		copied := *ev
		matched = append(matched, &copied)
	}
	total := int64(len(matched))

	// Newest first; ties keep append order reversed for determinism.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
