package services

import (
	"telehealth-consultation-service/internal/domain/entities"
)

// defaultFeeCents is the built-in consultation fee per specialty, in integer
// cents. Deployments override individual entries through configuration.
var defaultFeeCents = map[entities.Specialty]int64{
	entities.SpecialtyGeneralPractice: 4500,
	entities.SpecialtyCardiology:      9500,
	entities.SpecialtyDermatology:     7500,
	entities.SpecialtyPediatrics:      5500,
	entities.SpecialtyPsychiatry:      8500,
}

// FeeSchedule resolves the checkout amount for a specialty. Amounts are kept
// in integer cents end to end; no floating point touches money.
type FeeSchedule struct {
	currency string
	fees     map[entities.Specialty]int64
}

// NewFeeSchedule builds a schedule from the defaults plus per-specialty
// overrides keyed by specialty name. Unknown specialties and non-positive
// amounts in the override map are ignored.
func NewFeeSchedule(currency string, overridesCents map[string]int64) *FeeSchedule {
	fees := make(map[entities.Specialty]int64, len(defaultFeeCents))
	for specialty, cents := range defaultFeeCents {
		fees[specialty] = cents
	}
	for name, cents := range overridesCents {
		specialty := entities.Specialty(name)
		if entities.IsValidSpecialty(specialty) && cents > 0 {
			fees[specialty] = cents
		}
	}
	if currency == "" {
		currency = "USD"
	}
	return &FeeSchedule{currency: currency, fees: fees}
}

// FeeFor returns the fee for the given specialty in cents.
func (f *FeeSchedule) FeeFor(specialty entities.Specialty) int64 {
	return f.fees[specialty]
}

// Currency returns the ISO currency code all fees are denominated in.
func (f *FeeSchedule) Currency() string {
	return f.currency
}
