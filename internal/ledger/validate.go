package ledger

import (
	"time"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

// ChangeStatusRequest is the typed status-change payload validated
// before it reaches the ledger. Any state is reachable from any other;
// the rules below are field constraints, not a workflow graph.
type ChangeStatusRequest struct {
	Status          models.StatusState `json:"status" validate:"required"`
	Date            *time.Time         `json:"date,omitempty"`
	EndDate         *time.Time         `json:"end_date,omitempty"`
	ReferralHandler string             `json:"referral_handler,omitempty"`
	ReferralDate    *time.Time         `json:"referral_date,omitempty"`
}

// ValidateTransition checks a proposed status change.
//
// referralStates names the target states that carry referral fields for
// the entity at hand (clients moving to DROP); for those states the
// referral handler and date must be supplied together or not at all.
func ValidateTransition(req ChangeStatusRequest, referralStates map[models.StatusState]bool) error {
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(req.Status))
	}
	if req.Status == models.StatusFreeze && req.Date == nil {
		return appErrors.Clone(appErrors.ErrValidation, "freeze requires a start date")
	}
	if req.EndDate != nil && req.Status != models.StatusFreeze {
		return appErrors.Clone(appErrors.ErrValidation, "end date is only valid for freeze")
	}
	if req.Date != nil && req.EndDate != nil && req.EndDate.Before(*req.Date) {
		return appErrors.ErrInvalidRange
	}
	if referralStates[req.Status] {
		hasHandler := req.ReferralHandler != ""
		hasDate := req.ReferralDate != nil
		if hasHandler != hasDate {
			return appErrors.Clone(appErrors.ErrValidation, "referral handler and referral date must be supplied together")
		}
	}
	return nil
}

// EffectiveDate resolves the transition date, defaulting to now.
func (r ChangeStatusRequest) EffectiveDate(now time.Time) time.Time {
	if r.Date != nil {
		return *r.Date
	}
	return now
}
