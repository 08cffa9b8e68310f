package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/dtos"
	"telehealth-consultation-service/internal/domain/entities"
	"telehealth-consultation-service/internal/domain/repositories"
)

// PaymentServiceImpl implements PaymentServiceContract.
type PaymentServiceImpl struct {
	store    repositories.ConsultationStoreContract
	provider adapters.PaymentProvider
	fees     *FeeSchedule
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	store repositories.ConsultationStoreContract,
	provider adapters.PaymentProvider,
	fees *FeeSchedule,
	logger *zap.Logger,
) PaymentServiceContract {
	return &PaymentServiceImpl{
		store:    store,
		provider: provider,
		fees:     fees,
		logger:   logger,
		now:      time.Now,
	}
}

// awaitingPayment reports whether a checkout may be started from the given
// status. PAID and everything after it is already settled; terminal states
// are not payable.
func awaitingPayment(status entities.ConsultationStatus) bool {
	switch status {
	case entities.StatusCreated, entities.StatusPaymentPending, entities.StatusPaymentFailed:
		return true
	default:
		return false
	}
}

func (s *PaymentServiceImpl) InitiateCheckout(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.PaymentInitiationResponse, error) {
	c, err := loadConsultation(ctx, s.store, s.logger, consultationID)
	if err != nil {
		return nil, err
	}
	if c.PatientID != caller.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the owning patient can initiate payment")
	}
	if !awaitingPayment(c.Status) {
		return nil, apperrors.Newf(apperrors.CodeValidation, "consultation in status %s is not awaiting payment", c.Status).
			WithDetails(map[string]any{"status": string(c.Status)})
	}

	amountCents := s.fees.FeeFor(c.Specialty)
	currency := s.fees.Currency()
	// A fresh key per attempt: a retried or double-submitted initiation is a
	// new attempt with its own key, never a replay of an old one.
	idempotencyKey := uuid.NewString()

	checkout, err := s.provider.CreateCheckoutSession(ctx, adapters.CheckoutRequest{
		ConsultationID: c.ID,
		AmountCents:    amountCents,
		Currency:       currency,
		Description:    fmt.Sprintf("Telehealth consultation (%s)", c.Specialty),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		s.logger.Error("creating checkout session failed",
			zap.String("consultation_id", c.ID.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not create checkout session", err)
	}

	now := s.now().UTC()
	payment := &entities.Payment{
		ID:                 uuid.New(),
		ConsultationID:     c.ID,
		AmountCents:        amountCents,
		Currency:           currency,
		Status:             entities.PaymentStatusPending,
		ProviderCheckoutID: checkout.ID,
		IdempotencyKey:     idempotencyKey,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	audit := entities.NewAuditEvent(caller.UserID, c.ID, entities.AuditPaymentInitiated, map[string]any{
		"checkout_id":  checkout.ID,
		"amount_cents": amountCents,
		"currency":     currency,
	})
	// Unreferenced checkout sessions expire on the provider side, so a failed
	// persist needs no compensating call.
	if err := s.store.CreatePayment(ctx, payment, audit); err != nil {
		s.logger.Error("persisting payment attempt failed",
			zap.String("consultation_id", c.ID.String()),
			zap.String("checkout_id", checkout.ID),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not record payment attempt", err)
	}

	s.logger.Info("payment initiated",
		zap.String("consultation_id", c.ID.String()),
		zap.String("checkout_id", checkout.ID),
		zap.Int64("amount_cents", amountCents))

	return &dtos.PaymentInitiationResponse{
		CheckoutID:  checkout.ID,
		RedirectURL: checkout.RedirectURL,
		AmountCents: amountCents,
		Currency:    currency,
	}, nil
}

func (s *PaymentServiceImpl) GetStatus(ctx context.Context, caller entities.Caller, consultationID uuid.UUID) (*dtos.PaymentStatusResponse, error) {
	c, err := loadConsultation(ctx, s.store, s.logger, consultationID)
	if err != nil {
		return nil, err
	}
	if !canAccessConsultation(caller, c) {
		return nil, apperrors.New(apperrors.CodeForbidden, "no access to this consultation")
	}

	paid, err := s.store.HasPaidPayment(ctx, consultationID)
	if err != nil {
		s.logger.Error("reading payment status failed",
			zap.String("consultation_id", consultationID.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not read payment status", err)
	}
	return &dtos.PaymentStatusResponse{Paid: paid}, nil
}
