package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest describes one checkout session to create. The idempotency
// key is generated fresh for every attempt by the caller; the provider uses
// it to make sure a retried network call never charges twice.
type CheckoutRequest struct {
	ConsultationID uuid.UUID
	AmountCents    int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// CheckoutSession is the provider's handle for a created checkout. The
// patient is redirected to RedirectURL to complete the payment.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// PaymentProvider is the interface to the external payment system. Creating
// a session is a single synchronous call; confirmation arrives through the
// provider's own settlement path and is observed by polling the payment rows.
type PaymentProvider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// HTTPPaymentProvider creates checkout sessions against a Stripe-style REST
// API. The idempotency key travels in the conventional request header.
type HTTPPaymentProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ PaymentProvider = (*HTTPPaymentProvider)(nil)

// NewHTTPPaymentProvider creates a provider client for the given API base URL.
func NewHTTPPaymentProvider(baseURL, apiKey string, logger *zap.Logger) *HTTPPaymentProvider {
	return &HTTPPaymentProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (p *HTTPPaymentProvider) Name() string { return "checkout-http" }

func (p *HTTPPaymentProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":      req.AmountCents,
		"currency":    req.Currency,
		"description": req.Description,
		"reference":   req.ConsultationID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding checkout request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building checkout request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating checkout session: provider returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var body struct {
		ID          string `json:"id"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding checkout response: %w", err)
	}
	return &CheckoutSession{ID: body.ID, RedirectURL: body.RedirectURL}, nil
}

// InMemoryPaymentProvider records every checkout request and hands out
// deterministic session ids. Used by the test suite and by local runs without
// a payment provider configured.
type InMemoryPaymentProvider struct {
	// CreateErr, when set, is returned by CreateCheckoutSession to simulate a
	// provider failure.
	CreateErr error

	mu       sync.Mutex
	requests []CheckoutRequest
	counter  int
}

var _ PaymentProvider = (*InMemoryPaymentProvider)(nil)

// NewInMemoryPaymentProvider creates an empty in-memory provider.
func NewInMemoryPaymentProvider() *InMemoryPaymentProvider {
	return &InMemoryPaymentProvider{}
}

func (p *InMemoryPaymentProvider) Name() string { return "inmemory" }

func (p *InMemoryPaymentProvider) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	p.requests = append(p.requests, req)
	id := fmt.Sprintf("chk_%06d", p.counter)
	return &CheckoutSession{
		ID:          id,
		RedirectURL: "https://pay.checkout.local/" + id,
	}, nil
}

// Requests returns a copy of every checkout request seen so far.
func (p *InMemoryPaymentProvider) Requests() []CheckoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CheckoutRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
