package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
)

func newAuditFixture(t *testing.T) (AuditServiceContract, *MockConsultationStore, uuid.UUID, uuid.UUID) {
	store := NewMockConsultationStore()
	svc := NewAuditService(store, zap.NewNop())

	actorA, actorB := uuid.New(), uuid.New()
	consultA := seedConsultation(t, store, &entities.Consultation{
		ID: uuid.New(), PatientID: actorA, Specialty: entities.SpecialtyCardiology, Status: entities.StatusCreated,
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendAuditEvent(context.Background(),
			entities.NewAuditEvent(actorB, consultA.ID, entities.AuditJoinTokenMinted, nil)))
	}
	return svc, store, consultA.ID, actorB
}

func TestAuditList_AdminOnly(t *testing.T) {
	svc, _, _, _ := newAuditFixture(t)

	for _, caller := range []entities.Caller{patientCaller(), doctorCaller()} {
		_, err := svc.List(context.Background(), caller, &dtos.AuditEventQuery{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	}

	listed, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{})
	require.NoError(t, err)
	// one CONSULT_CREATED plus three mints
	assert.Equal(t, int64(4), listed.Total)
}

func TestAuditList_Filters(t *testing.T) {
	svc, _, consultationID, actor := newAuditFixture(t)

	byType, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{
		EventType: string(entities.AuditJoinTokenMinted),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byType.Total)
	for _, ev := range byType.Events {
		assert.Equal(t, string(entities.AuditJoinTokenMinted), ev.EventType)
	}

	byActor, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{ActorUserID: &actor})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byActor.Total)

	byConsultation, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{
		ConsultationID: &consultationID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), byConsultation.Total)

	none := uuid.New()
	empty, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{ConsultationID: &none})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Events)
}

func TestAuditList_Pagination(t *testing.T) {
	svc, _, _, _ := newAuditFixture(t)

	page, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Events, 2)
	assert.Equal(t, 2, page.Limit)

	rest, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest.Events, 2)
	assert.Equal(t, 2, rest.Offset)

	// oversized limits are clamped, negative offsets normalized
	clamped, err := svc.List(context.Background(), adminCaller(), &dtos.AuditEventQuery{Limit: 100000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, maxAuditListLimit, clamped.Limit)
	assert.Zero(t, clamped.Offset)
}
