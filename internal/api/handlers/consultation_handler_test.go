package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/api/middleware"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/repositories"
	"telehealth-consultation-service/internal/services"
)

var testIdentitySecret = []byte("test-identity-secret")

// newTestApp wires the full API against in-memory infrastructure.
func newTestApp(t *testing.T) (*fiber.App, *repositories.InMemoryConsultationStore) {
	t.Helper()
	store := repositories.NewInMemoryConsultationStore()
	users := repositories.NewInMemoryUserRepository()
	video := adapters.NewInMemoryVideoProvider([]byte("room-secret"), 15*time.Minute)
	payments := adapters.NewInMemoryPaymentProvider()
	logger := zap.NewNop()

	consultationSvc := services.NewConsultationService(store, users, adapters.NewInMemorySlotLocker(), logger)
	joinSvc := services.NewJoinService(store, video, logger)
	paymentSvc := services.NewPaymentService(store, payments, services.NewFeeSchedule("USD", nil), logger)
	auditSvc := services.NewAuditService(store, logger)

	app := fiber.New()
	identity := middleware.NewIdentity(testIdentitySecret)
	RegisterHealthRoutes(app)
	RegisterConsultationRoutes(app, NewConsultationHandler(consultationSvc, joinSvc, paymentSvc, logger), identity)
	RegisterAuditRoutes(app, NewAuditHandler(auditSvc, logger), identity)
	return app, store
}

func bearerFor(t *testing.T, userID uuid.UUID, role entities.Role) string {
	t.Helper()
	token, err := middleware.SignIdentityToken(testIdentitySecret, userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestAPI_HealthzIsOpen(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_MissingTokenIsUnauthorized(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/consultations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestAPI_CreateConsultation(t *testing.T) {
	app, _ := newTestApp(t)
	auth := bearerFor(t, uuid.New(), entities.RolePatient)

	resp, body := doJSON(t, app, http.MethodPost, "/consultations", auth, map[string]any{
		"specialty":          "CARDIOLOGY",
		"scheduled_start_at": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "CREATED", body["status"])
	assert.Equal(t, "CARDIOLOGY", body["specialty"])
}

func TestAPI_CreateConsultationBadSpecialty(t *testing.T) {
	app, _ := newTestApp(t)
	auth := bearerFor(t, uuid.New(), entities.RolePatient)

	resp, body := doJSON(t, app, http.MethodPost, "/consultations", auth, map[string]any{"specialty": "ALCHEMY"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestAPI_UnknownConsultationIs404(t *testing.T) {
	app, _ := newTestApp(t)
	auth := bearerFor(t, uuid.New(), entities.RoleAdmin)

	resp, body := doJSON(t, app, http.MethodGet, "/consultations/"+uuid.NewString(), auth, nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestAPI_MalformedIDIs400(t *testing.T) {
	app, _ := newTestApp(t)
	auth := bearerFor(t, uuid.New(), entities.RoleAdmin)

	resp, body := doJSON(t, app, http.MethodGet, "/consultations/not-a-uuid", auth, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestAPI_JoinOutsideWindowCarriesBoundaries(t *testing.T) {
	app, store := newTestApp(t)
	patientID := uuid.New()
	scheduled := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	c := &entities.Consultation{
		ID: uuid.New(), PatientID: patientID, Specialty: entities.SpecialtyCardiology,
		Status: entities.StatusPaid, ScheduledStartAt: &scheduled,
	}
	require.NoError(t, store.CreateConsultation(context.Background(), c,
		entities.NewAuditEvent(patientID, c.ID, entities.AuditConsultCreated, nil)))

	auth := bearerFor(t, patientID, entities.RolePatient)
	resp, body := doJSON(t, app, http.MethodPost, fmt.Sprintf("/consultations/%s/join", c.ID), auth, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))

	envelope := body["error"].(map[string]any)
	details := envelope["details"].(map[string]any)
	assert.Equal(t, scheduled.Add(30*time.Minute).Format(time.RFC3339), details["closes_at"])
	assert.Equal(t, scheduled.Add(-5*time.Minute).Format(time.RFC3339), details["opens_at"])
}

func TestAPI_JoinAndPaymentFlow(t *testing.T) {
	app, store := newTestApp(t)
	patientID := uuid.New()
	c := &entities.Consultation{
		ID: uuid.New(), PatientID: patientID, Specialty: entities.SpecialtyCardiology,
		Status: entities.StatusPaymentPending,
	}
	require.NoError(t, store.CreateConsultation(context.Background(), c,
		entities.NewAuditEvent(patientID, c.ID, entities.AuditConsultCreated, nil)))

	auth := bearerFor(t, patientID, entities.RolePatient)

	resp, body := doJSON(t, app, http.MethodPost, fmt.Sprintf("/consultations/%s/payment", c.ID), auth, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	checkoutID, _ := body["checkout_id"].(string)
	require.NotEmpty(t, checkoutID)
	assert.NotEmpty(t, body["redirect_url"])

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/consultations/%s/payment/status", c.ID), auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["paid"])

	// settlement confirmation arrives out of band
	require.True(t, store.MarkPaymentPaid(c.ID, checkoutID))
	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/consultations/%s/payment/status", c.ID), auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["paid"])

	// mark the consultation payable -> PAID through the doctor PATCH
	doctorAuth := bearerFor(t, uuid.New(), entities.RoleDoctor)
	resp, _ = doJSON(t, app, http.MethodPatch, "/consultations/"+c.ID.String(), doctorAuth, map[string]any{"status": "PAID"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/consultations/%s/join", c.ID), auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["join_url"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["room_url"])
}

func TestAPI_StalePatchConflicts(t *testing.T) {
	app, store := newTestApp(t)
	c := &entities.Consultation{
		ID: uuid.New(), PatientID: uuid.New(), Specialty: entities.SpecialtyCardiology,
		Status: entities.StatusCreated,
	}
	require.NoError(t, store.CreateConsultation(context.Background(), c,
		entities.NewAuditEvent(c.PatientID, c.ID, entities.AuditConsultCreated, nil)))

	auth := bearerFor(t, uuid.New(), entities.RoleAdmin)
	stale := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	resp, body := doJSON(t, app, http.MethodPatch, "/consultations/"+c.ID.String(), auth, map[string]any{
		"status":     "PAYMENT_PENDING",
		"updated_at": stale,
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestAPI_AuditTrailIsAdminOnly(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/audit-events",
		bearerFor(t, uuid.New(), entities.RolePatient), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, body = doJSON(t, app, http.MethodGet, "/audit-events?limit=10",
		bearerFor(t, uuid.New(), entities.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, hasEvents := body["events"]
	assert.True(t, hasEvents)
}
