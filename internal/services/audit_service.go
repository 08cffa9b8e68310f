package services

import (
	"context"

	"go.uber.org/zap"

	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/repositories"
)

const (
	defaultAuditListLimit = 50
	maxAuditListLimit     = 200
)

// AuditServiceImpl implements AuditServiceContract.
type AuditServiceImpl struct {
	store  repositories.ConsultationStoreContract
	logger *zap.Logger
}

// NewAuditService creates a new AuditServiceImpl.
func NewAuditService(store repositories.ConsultationStoreContract, logger *zap.Logger) AuditServiceContract {
	return &AuditServiceImpl{store: store, logger: logger}
}

func (s *AuditServiceImpl) List(ctx context.Context, caller entities.Caller, query *dtos.AuditEventQuery) (*dtos.AuditEventListResponse, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "the audit trail is admin-only")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	if limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	events, total, err := s.store.ListAuditEvents(ctx, repositories.AuditFilter{
		EventType:      entities.AuditEventType(query.EventType),
		ActorUserID:    query.ActorUserID,
		ConsultationID: query.ConsultationID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		s.logger.Error("listing audit events failed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not list audit events", err)
	}

	out := make([]*dtos.AuditEventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, dtos.NewAuditEventDTO(ev))
	}
	return &dtos.AuditEventListResponse{
		Events: out,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
