package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/repositories"
)

// TestConsultationFlow_CardiologyBookingThroughCompletion walks the whole
// lifecycle against the in-memory store and providers: booking, payment
// status transitions, first and repeat join, completion, and the audit trail
// the flow leaves behind.
func TestConsultationFlow_CardiologyBookingThroughCompletion(t *testing.T) {
	store := repositories.NewInMemoryConsultationStore()
	users := repositories.NewInMemoryUserRepository()
	video := adapters.NewInMemoryVideoProvider(testTokenSecret, testTokenTTL)
	logger := zap.NewNop()

	consultations := NewConsultationService(store, users, adapters.NewInMemorySlotLocker(), logger).(*ConsultationServiceImpl)
	join := NewJoinService(store, video, logger).(*JoinServiceImpl)

	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	consultations.now = fixedClock(base)

	patient := patientCaller()
	doctor := doctorCaller()
	ctx := context.Background()

	// book CARDIOLOGY for base+60min
	scheduled := base.Add(60 * time.Minute)
	created, err := consultations.Create(ctx, patient, &dtos.CreateConsultationRequest{
		Specialty:        string(entities.SpecialtyCardiology),
		ScheduledStartAt: &scheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, string(entities.StatusCreated), created.Status)

	// doctor moves it through the payment states
	pending := string(entities.StatusPaymentPending)
	afterPending, err := consultations.Update(ctx, doctor, created.ID, &dtos.UpdateConsultationRequest{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, pending, afterPending.Status)

	paid := string(entities.StatusPaid)
	afterPaid, err := consultations.Update(ctx, doctor, created.ID, &dtos.UpdateConsultationRequest{Status: &paid})
	require.NoError(t, err)
	assert.Equal(t, paid, afterPaid.Status)
	assert.Nil(t, afterPaid.StartedAt)

	// first join two minutes before the scheduled start
	join.now = fixedClock(base.Add(58 * time.Minute))
	firstJoin, err := join.Join(ctx, patient, created.ID)
	require.NoError(t, err)

	inCall, err := store.GetConsultationByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInCall, inCall.Status)
	require.NotNil(t, inCall.StartedAt)
	assert.Nil(t, inCall.EndedAt)

	// a repeat join reuses the room and mints a fresh token
	secondJoin, err := join.Join(ctx, doctor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, firstJoin.RoomName, secondJoin.RoomName)
	assert.NotEqual(t, firstJoin.Token, secondJoin.Token)
	assert.Equal(t, 1, video.LiveRoomCount())

	// the consultation was modified by the join path, so a blind PATCH with
	// the pre-join marker conflicts before completion succeeds
	completed := string(entities.StatusCompleted)
	staleMarker := afterPaid.UpdatedAt
	_, err = consultations.Update(ctx, doctor, created.ID, &dtos.UpdateConsultationRequest{
		Status:    &completed,
		UpdatedAt: &staleMarker,
	})
	require.Error(t, err)

	final, err := consultations.Update(ctx, doctor, created.ID, &dtos.UpdateConsultationRequest{
		Status:    &completed,
		UpdatedAt: &inCall.UpdatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, completed, final.Status)
	require.NotNil(t, final.EndedAt)
	assert.True(t, final.StartedAt.Equal(*inCall.StartedAt))

	// the audit trail holds exactly one row per mutation across the flow
	assert.Len(t, auditEventsOfType(store, created.ID, entities.AuditConsultCreated), 1)
	assert.Len(t, auditEventsOfType(store, created.ID, entities.AuditJoinTokenMinted), 2)

	statusChanges := auditEventsOfType(store, created.ID, entities.AuditConsultStatusChanged)
	require.Len(t, statusChanges, 4)
	wantTransitions := map[string]string{
		"PAYMENT_PENDING": "CREATED",
		"PAID":            "PAYMENT_PENDING",
		"IN_CALL":         "PAID",
		"COMPLETED":       "IN_CALL",
	}
	for _, ev := range statusChanges {
		meta := ev.MetadataMap()
		to, _ := meta["to"].(string)
		assert.Equal(t, wantTransitions[to], meta["from"], "transition into %s", to)
		delete(wantTransitions, to)
	}
	assert.Empty(t, wantTransitions, "every transition of the flow was audited")
}

// TestConsultationFlow_ExpiredDisplayAfterMissedWindow covers the read-time
// EXPIRED derivation: a PAID consultation whose window closed reads as
// EXPIRED while the stored status stays PAID.
func TestConsultationFlow_ExpiredDisplayAfterMissedWindow(t *testing.T) {
	store := repositories.NewInMemoryConsultationStore()
	users := repositories.NewInMemoryUserRepository()
	consultations := NewConsultationService(store, users, adapters.NewInMemorySlotLocker(), zap.NewNop()).(*ConsultationServiceImpl)

	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	patient := patientCaller()
	scheduled := base.Add(time.Hour)
	c := seedConsultation(t, store, &entities.Consultation{
		ID: uuid.New(), PatientID: patient.UserID, Specialty: entities.SpecialtyCardiology,
		Status: entities.StatusPaid, ScheduledStartAt: &scheduled,
	})

	consultations.now = fixedClock(scheduled.Add(31 * time.Minute))
	got, err := consultations.GetByID(context.Background(), patient, c.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.StatusExpired), got.DisplayStatus)
	assert.Equal(t, string(entities.StatusPaid), got.Status)

	stored, err := store.GetConsultationByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPaid, stored.Status, "derivation never writes")
}
