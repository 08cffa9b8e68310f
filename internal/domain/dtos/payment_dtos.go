package dtos

// PaymentInitiationResponse is returned when a checkout session was created.
// The caller redirects the patient to RedirectURL and then polls the payment
// status endpoint until paid or abandoned.
type PaymentInitiationResponse struct {
	CheckoutID  string `json:"checkout_id"`
	RedirectURL string `json:"redirect_url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentStatusResponse is the poll answer: paid is true as soon as at least
// one PAID payment row exists for the consultation.
type PaymentStatusResponse struct {
	Paid bool `json:"paid"`
}
