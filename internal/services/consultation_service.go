package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/lifecycle"
	"telehealth-consultation-service/internal/domain/repositories"
)

// slotLockTTL caps how long an advisory slot claim can outlive its request if
// the release is never reached.
const slotLockTTL = 10 * time.Second

// ConsultationServiceImpl implements ConsultationServiceContract.
type ConsultationServiceImpl struct {
	store    repositories.ConsultationStoreContract
	users    repositories.UserRepositoryContract
	slotLock adapters.SlotLocker
	logger   *zap.Logger
	now      func() time.Time
}

// NewConsultationService creates a new ConsultationServiceImpl.
func NewConsultationService(
	store repositories.ConsultationStoreContract,
	users repositories.UserRepositoryContract,
	slotLock adapters.SlotLocker,
	logger *zap.Logger,
) ConsultationServiceContract {
	return &ConsultationServiceImpl{
		store:    store,
		users:    users,
		slotLock: slotLock,
		logger:   logger,
		now:      time.Now,
	}
}

// canAccessConsultation reports whether the caller may read or join the
// consultation: the patient, the assigned doctor, or any admin.
func canAccessConsultation(caller entities.Caller, c *entities.Consultation) bool {
	return caller.IsAdmin() || c.IsParticipant(caller.UserID)
}

// loadConsultation fetches a consultation and maps store errors onto the
// client-facing taxonomy.
func loadConsultation(ctx context.Context, store repositories.ConsultationStoreContract, logger *zap.Logger, id uuid.UUID) (*entities.Consultation, error) {
	c, err := store.GetConsultationByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "consultation not found")
	}
	if err != nil {
		logger.Error("loading consultation failed",
			zap.String("consultation_id", id.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load consultation", err)
	}
	return c, nil
}

func (s *ConsultationServiceImpl) Create(ctx context.Context, caller entities.Caller, req *dtos.CreateConsultationRequest) (*dtos.ConsultationDTO, error) {
	if !caller.IsPatient() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only patients can book consultations")
	}
	specialty := entities.Specialty(req.Specialty)
	if !entities.IsValidSpecialty(specialty) {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown specialty %q", req.Specialty)
	}
	now := s.now().UTC()
	if req.ScheduledStartAt != nil && !req.ScheduledStartAt.After(now) {
		return nil, apperrors.New(apperrors.CodeValidation, "scheduled_start_at must lie in the future")
	}

	c := &entities.Consultation{
		ID:        uuid.New(),
		PatientID: caller.UserID,
		Specialty: specialty,
		Status:    entities.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	meta := map[string]any{"specialty": string(specialty)}
	if req.ScheduledStartAt != nil {
		scheduled := req.ScheduledStartAt.UTC()
		c.ScheduledStartAt = &scheduled
		meta["scheduled_start_at"] = scheduled.Format(time.RFC3339)
	}

	audit := entities.NewAuditEvent(caller.UserID, c.ID, entities.AuditConsultCreated, meta)
	if err := s.store.CreateConsultation(ctx, c, audit); err != nil {
		s.logger.Error("creating consultation failed",
			zap.String("consultation_id", c.ID.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not create consultation", err)
	}

	s.logger.Info("consultation created",
		zap.String("consultation_id", c.ID.String()),
		zap.String("patient_id", caller.UserID.String()),
		zap.String("specialty", string(specialty)))
	return dtos.NewConsultationDTO(c, lifecycle.EffectiveStatus(c, now)), nil
}

func (s *ConsultationServiceImpl) GetByID(ctx context.Context, caller entities.Caller, id uuid.UUID) (*dtos.ConsultationDTO, error) {
	c, err := loadConsultation(ctx, s.store, s.logger, id)
	if err != nil {
		return nil, err
	}
	if !canAccessConsultation(caller, c) {
		return nil, apperrors.New(apperrors.CodeForbidden, "no access to this consultation")
	}
	return dtos.NewConsultationDTO(c, lifecycle.EffectiveStatus(c, s.now().UTC())), nil
}

func (s *ConsultationServiceImpl) List(ctx context.Context, caller entities.Caller) ([]*dtos.ConsultationDTO, error) {
	filter := repositories.ConsultationFilter{}
	switch caller.Role {
	case entities.RolePatient:
		patientID := caller.UserID
		filter.PatientID = &patientID
	case entities.RoleDoctor:
		doctorID := caller.UserID
		filter.DoctorID = &doctorID
	case entities.RoleAdmin:
		// admins see everything
	}

	consultations, err := s.store.ListConsultations(ctx, filter)
	if err != nil {
		s.logger.Error("listing consultations failed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not list consultations", err)
	}

	now := s.now().UTC()
	out := make([]*dtos.ConsultationDTO, 0, len(consultations))
	for _, c := range consultations {
		out = append(out, dtos.NewConsultationDTO(c, lifecycle.EffectiveStatus(c, now)))
	}
	return out, nil
}

func (s *ConsultationServiceImpl) Update(ctx context.Context, caller entities.Caller, id uuid.UUID, req *dtos.UpdateConsultationRequest) (*dtos.ConsultationDTO, error) {
	if req.Empty() {
		return nil, apperrors.New(apperrors.CodeValidation, "update request carries no changes")
	}

	current, err := loadConsultation(ctx, s.store, s.logger, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	now := s.now().UTC()
	var audits []*entities.AuditEvent

	if req.DoctorID != nil {
		if !caller.IsAdmin() {
			return nil, apperrors.New(apperrors.CodeForbidden, "only admins can assign doctors")
		}
		target, err := s.users.GetByID(ctx, *req.DoctorID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeValidation, "assignment target does not exist").
				WithDetails(map[string]any{"doctor_id": req.DoctorID.String()})
		}
		if err != nil {
			s.logger.Error("loading assignment target failed",
				zap.String("consultation_id", id.String()),
				zap.String("doctor_id", req.DoctorID.String()),
				zap.Error(err))
			return nil, apperrors.Wrap(apperrors.CodeInternal, "could not verify assignment target", err)
		}
		if target.Role != entities.RoleDoctor {
			return nil, apperrors.New(apperrors.CodeValidation, "assignment target does not hold the doctor role").
				WithDetails(map[string]any{"doctor_id": req.DoctorID.String(), "role": string(target.Role)})
		}
		doctorID := *req.DoctorID
		updated.DoctorID = &doctorID
		audits = append(audits, entities.NewAuditEvent(caller.UserID, id, entities.AuditDoctorAssigned,
			map[string]any{"doctor_id": doctorID.String()}))
	}

	if req.ScheduledStartAt != nil {
		if !caller.IsDoctor() && !caller.IsAdmin() {
			return nil, apperrors.New(apperrors.CodeForbidden, "only doctors or admins can reschedule consultations")
		}
		if !req.ScheduledStartAt.After(now) {
			return nil, apperrors.New(apperrors.CodeValidation, "scheduled_start_at must lie in the future")
		}
		scheduled := req.ScheduledStartAt.UTC()
		meta := map[string]any{"to": scheduled.Format(time.RFC3339)}
		if current.ScheduledStartAt != nil {
			meta["from"] = current.ScheduledStartAt.Format(time.RFC3339)
		}
		updated.ScheduledStartAt = &scheduled
		audits = append(audits, entities.NewAuditEvent(caller.UserID, id, entities.AuditConsultRescheduled, meta))
	}

	if req.Status != nil {
		if !caller.IsDoctor() && !caller.IsAdmin() {
			return nil, apperrors.New(apperrors.CodeForbidden, "only doctors or admins can change the consultation status")
		}
		to := entities.ConsultationStatus(*req.Status)
		if !entities.IsValidStatus(to) {
			return nil, apperrors.Newf(apperrors.CodeValidation, "unknown status %q", *req.Status)
		}
		// The PAID -> IN_CALL entry belongs to the join flow alone: the
		// video session insert is what triggers it. A direct update would
		// leave an IN_CALL consultation with no room to join.
		if to == entities.StatusInCall {
			return nil, apperrors.New(apperrors.CodeInvalidTransition,
				"IN_CALL is entered by joining the call, not by direct update").
				WithDetails(map[string]any{"from": string(updated.Status), "to": string(to)})
		}
		from := updated.Status
		if err := lifecycle.ApplyTransition(&updated, to, now); err != nil {
			return nil, err
		}
		audits = append(audits, entities.NewAuditEvent(caller.UserID, id, entities.AuditConsultStatusChanged,
			map[string]any{"from": string(from), "to": string(to)}))
	}

	// Advisory only: narrows the double-booking window while the slot is
	// being claimed. The optimistic check and the store transaction stay the
	// correctness boundary whether or not the claim succeeded.
	if (req.DoctorID != nil || req.ScheduledStartAt != nil) && updated.HasDoctor() && updated.ScheduledStartAt != nil {
		release, acquired := s.slotLock.Acquire(ctx, adapters.SlotKey(*updated.DoctorID, *updated.ScheduledStartAt), slotLockTTL)
		defer release()
		if !acquired {
			s.logger.Warn("proceeding without advisory slot lock",
				zap.String("consultation_id", id.String()),
				zap.String("doctor_id", updated.DoctorID.String()))
		}
	}

	if err := s.store.UpdateConsultation(ctx, &updated, req.UpdatedAt, audits); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, apperrors.New(apperrors.CodeNotFound, "consultation not found")
		case errors.Is(err, repositories.ErrStaleConsultation):
			return nil, apperrors.New(apperrors.CodeConflict, "consultation was modified by another writer, refetch and retry")
		default:
			s.logger.Error("updating consultation failed",
				zap.String("consultation_id", id.String()),
				zap.Error(err))
			return nil, apperrors.Wrap(apperrors.CodeInternal, "could not update consultation", err)
		}
	}

	s.logger.Info("consultation updated",
		zap.String("consultation_id", id.String()),
		zap.String("status", string(updated.Status)),
		zap.Int("audit_events", len(audits)))
	return dtos.NewConsultationDTO(&updated, lifecycle.EffectiveStatus(&updated, now)), nil
}
