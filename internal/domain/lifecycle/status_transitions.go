// Package lifecycle holds the pure consultation lifecycle rules: the status
// transition graph and the join time window arithmetic. Nothing in this
// package touches storage or the clock implicitly; callers pass `now` in.
package lifecycle

import (
	"time"

	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/entities"
)

// transitionTable is the complete legal state graph. Any (from, to) pair not
// present here is rejected. Terminal states map to an empty set.
var transitionTable = map[entities.ConsultationStatus][]entities.ConsultationStatus{
	entities.StatusCreated:        {entities.StatusPaymentPending, entities.StatusCancelled},
	entities.StatusPaymentPending: {entities.StatusPaid, entities.StatusPaymentFailed, entities.StatusCancelled},
	entities.StatusPaid:           {entities.StatusInCall, entities.StatusCancelled},
	entities.StatusInCall:         {entities.StatusCompleted},
	entities.StatusCompleted:      {},
	entities.StatusCancelled:      {},
	entities.StatusExpired:        {},
	entities.StatusPaymentFailed:  {entities.StatusPaymentPending},
}

// CanTransition reports whether from -> to is an edge of the state graph.
func CanTransition(from, to entities.ConsultationStatus) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed invalid-transition error, carrying both
// endpoints, for any pair off the table.
func ValidateTransition(from, to entities.ConsultationStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperrors.Newf(apperrors.CodeInvalidTransition,
		"cannot transition consultation from %s to %s", from, to).
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}

// ApplyTransition validates from(c.Status) -> to and mutates c in place:
// status is replaced and the transition's timestamp side effects are stamped.
// StartedAt is set on entry to IN_CALL and EndedAt on entry to COMPLETED,
// each exactly once; re-entry cannot occur because neither state is reachable
// twice in the graph. The caller is responsible for persisting c together
// with its CONSULT_STATUS_CHANGED audit row in one transaction.
func ApplyTransition(c *entities.Consultation, to entities.ConsultationStatus, now time.Time) error {
	if err := ValidateTransition(c.Status, to); err != nil {
		return err
	}
	c.Status = to
	switch to {
	case entities.StatusInCall:
		if c.StartedAt == nil {
			ts := now.UTC()
			c.StartedAt = &ts
		}
	case entities.StatusCompleted:
		if c.EndedAt == nil {
			ts := now.UTC()
			c.EndedAt = &ts
		}
	}
	return nil
}
