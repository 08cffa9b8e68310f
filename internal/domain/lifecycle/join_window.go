package lifecycle

import (
	"time"

	"telehealth-consultation-service/internal/domain/entities"
)

// Join window boundaries relative to the scheduled start. Participants may
// enter the call up to EarlyJoinSlack before the scheduled start and up to
// LateJoinCutoff after it; both boundaries are inclusive.
const (
	EarlyJoinSlack = 5 * time.Minute
	LateJoinCutoff = 30 * time.Minute
)

// JoinWindow returns the inclusive [opensAt, closesAt] interval for a
// consultation scheduled at scheduledStartAt.
func JoinWindow(scheduledStartAt time.Time) (opensAt, closesAt time.Time) {
	return scheduledStartAt.Add(-EarlyJoinSlack), scheduledStartAt.Add(LateJoinCutoff)
}

// Joinable reports whether now falls inside the join window. Unscheduled
// consultations (nil scheduledStartAt) are joinable at any time.
func Joinable(scheduledStartAt *time.Time, now time.Time) bool {
	if scheduledStartAt == nil {
		return true
	}
	opensAt, closesAt := JoinWindow(*scheduledStartAt)
	return !now.Before(opensAt) && !now.After(closesAt)
}

// EffectiveStatus derives the status to display for c at the given instant.
// A PAID or IN_CALL consultation whose join window has closed reads as
// EXPIRED. This is a read-time derivation only: the persisted status field is
// never rewritten by this rule, so the function must stay free of any store
// interaction.
func EffectiveStatus(c *entities.Consultation, now time.Time) entities.ConsultationStatus {
	if c.Status != entities.StatusPaid && c.Status != entities.StatusInCall {
		return c.Status
	}
	if c.ScheduledStartAt == nil {
		return c.Status
	}
	if _, closesAt := JoinWindow(*c.ScheduledStartAt); now.After(closesAt) {
		return entities.StatusExpired
	}
	return c.Status
}
