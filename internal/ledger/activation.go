package ledger

import (
	"time"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

// Toggle flips the activation flag for a subject assignment pair and
// appends the matching history event.
//
// Requesting the state the record is already in fails with NO_OP so
// redundant form submissions never pollute the history.
func Toggle(rec *models.ActivationRecord, desiredActive bool, actor, reason string, now time.Time) error {
	if rec.IsActive == desiredActive {
		if desiredActive {
			return appErrors.Clone(appErrors.ErrNoOpToggle, "assignment is already active")
		}
		return appErrors.Clone(appErrors.ErrNoOpToggle, "assignment is already inactive")
	}

	event := models.ActivationEvent{At: now, ActorID: actor, Reason: reason}
	if desiredActive {
		rec.ActivationHistory = append(rec.ActivationHistory, event)
		at := event.At
		rec.LastActivatedAt = &at
	} else {
		rec.DeactivationHistory = append(rec.DeactivationHistory, event)
		at := event.At
		rec.LastDeactivatedAt = &at
	}
	rec.IsActive = desiredActive
	return nil
}

// IsActive reports the effective flag for a pair. A pair that has never
// been toggled has no record and is active by default.
func IsActive(rec *models.ActivationRecord) bool {
	if rec == nil {
		return true
	}
	return rec.IsActive
}
