package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"telehealth-consultation-service/internal/domain/entities"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// Compile-time check that the GORM store satisfies the contract.
var _ ConsultationStoreContract = (*GormConsultationStore)(nil)

// GormConsultationStore is the Postgres-backed implementation of the
// consultation store. Multi-row units run inside db.Transaction so the
// audit-row co-commit invariant holds: a failed audit append rolls back the
// mutation it documents.
type GormConsultationStore struct {
	db *gorm.DB
}

// NewGormConsultationStore creates a store on top of an initialized GORM
// handle.
func NewGormConsultationStore(db *gorm.DB) ConsultationStoreContract {
	return &GormConsultationStore{db: db}
}

// isUniqueViolation detects a unique-constraint rejection from either the
// gorm error translation layer or the raw lib/pq driver error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *GormConsultationStore) CreateConsultation(ctx context.Context, c *entities.Consultation, audit *entities.AuditEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("inserting consultation: %w", err)
		}
		if err := tx.Create(audit).Error; err != nil {
			return fmt.Errorf("appending audit event: %w", err)
		}
		return nil
	})
}

func (s *GormConsultationStore) GetConsultationByID(ctx context.Context, id uuid.UUID) (*entities.Consultation, error) {
	var c entities.Consultation
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading consultation %s: %w", id, err)
	}
	return &c, nil
}

func (s *GormConsultationStore) ListConsultations(ctx context.Context, filter ConsultationFilter) ([]*entities.Consultation, error) {
	q := s.db.WithContext(ctx).Model(&entities.Consultation{})
	if filter.PatientID != nil {
		q = q.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		q = q.Where("doctor_id = ?", *filter.DoctorID)
	}
	var out []*entities.Consultation
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	return out, nil
}

func (s *GormConsultationStore) UpdateConsultation(ctx context.Context, c *entities.Consultation, expectedUpdatedAt *time.Time, audits []*entities.AuditEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&entities.Consultation{}).Where("id = ?", c.ID)
		if expectedUpdatedAt != nil {
			q = q.Where("updated_at = ?", *expectedUpdatedAt)
		}
		res := q.Updates(map[string]any{
			"status":             c.Status,
			"doctor_id":          c.DoctorID,
			"scheduled_start_at": c.ScheduledStartAt,
			"started_at":         c.StartedAt,
			"ended_at":           c.EndedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("updating consultation %s: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Either the row is gone or the optimistic check failed.
			var count int64
			if err := tx.Model(&entities.Consultation{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("checking consultation %s existence: %w", c.ID, err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrStaleConsultation
		}
		for _, audit := range audits {
			if err := tx.Create(audit).Error; err != nil {
				return fmt.Errorf("appending audit event: %w", err)
			}
		}
		// Refresh so the caller observes the stored row, UpdatedAt included.
		if err := tx.First(c, "id = ?", c.ID).Error; err != nil {
			return fmt.Errorf("reloading consultation %s: %w", c.ID, err)
		}
		return nil
	})
}

func (s *GormConsultationStore) GetVideoSession(ctx context.Context, consultationID uuid.UUID) (*entities.VideoSession, error) {
	var session entities.VideoSession
	err := s.db.WithContext(ctx).First(&session, "consultation_id = ?", consultationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading video session for consultation %s: %w", consultationID, err)
	}
	return &session, nil
}

func (s *GormConsultationStore) ActivateVideoSession(ctx context.Context, session *entities.VideoSession, c *entities.Consultation, audit *entities.AuditEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrVideoSessionExists
			}
			return fmt.Errorf("inserting video session: %w", err)
		}
		// Guard on the PAID precondition so a concurrent transition cannot
		// be silently overwritten.
		res := tx.Model(&entities.Consultation{}).
			Where("id = ? AND status = ?", c.ID, entities.StatusPaid).
			Updates(map[string]any{
				"status":     c.Status,
				"started_at": c.StartedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("activating consultation %s: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleConsultation
		}
		if err := tx.Create(audit).Error; err != nil {
			return fmt.Errorf("appending audit event: %w", err)
		}
		if err := tx.First(c, "id = ?", c.ID).Error; err != nil {
			return fmt.Errorf("reloading consultation %s: %w", c.ID, err)
		}
		return nil
	})
}

func (s *GormConsultationStore) CreatePayment(ctx context.Context, p *entities.Payment, audit *entities.AuditEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}
		if err := tx.Create(audit).Error; err != nil {
			return fmt.Errorf("appending audit event: %w", err)
		}
		return nil
	})
}

func (s *GormConsultationStore) HasPaidPayment(ctx context.Context, consultationID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entities.Payment{}).
		Where("consultation_id = ? AND status = ?", consultationID, entities.PaymentStatusPaid).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("counting paid payments for consultation %s: %w", consultationID, err)
	}
	return count > 0, nil
}

func (s *GormConsultationStore) AppendAuditEvent(ctx context.Context, event *entities.AuditEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

func (s *GormConsultationStore) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]*entities.AuditEvent, int64, error) {
	q := s.db.WithContext(ctx).Model(&entities.AuditEvent{})
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.ConsultationID != nil {
		q = q.Where("consultation_id = ?", *filter.ConsultationID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting audit events: %w", err)
	}

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

	var events []*entities.AuditEvent
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("listing audit events: %w", err)
	}
	return events, total, nil
}
