package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateTransitionFreezeRequiresStartDate(t *testing.T) {
	err := ValidateTransition(ChangeStatusRequest{Status: models.StatusFreeze}, nil)
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrValidation.Code)

	err = ValidateTransition(ChangeStatusRequest{
		Status: models.StatusFreeze,
		Date:   timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, nil)
	assert.NoError(t, err)
}

func TestValidateTransitionRejectsUnknownStatus(t *testing.T) {
	err := ValidateTransition(ChangeStatusRequest{Status: "PAUSED"}, nil)
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestValidateTransitionRejectsInvertedRange(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	err := ValidateTransition(ChangeStatusRequest{
		Status:  models.StatusFreeze,
		Date:    &start,
		EndDate: timePtr(start.Add(-time.Hour)),
	}, nil)
	assertCode(t, err, appErrors.ErrInvalidRange.Code)
}

func TestValidateTransitionEndDateOnlyForFreeze(t *testing.T) {
	err := ValidateTransition(ChangeStatusRequest{
		Status:  models.StatusRegular,
		EndDate: timePtr(time.Now()),
	}, nil)
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestValidateTransitionReferralPair(t *testing.T) {
	referral := map[models.StatusState]bool{models.StatusDrop: true}
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	// Handler without date fails.
	err := ValidateTransition(ChangeStatusRequest{
		Status:          models.StatusDrop,
		ReferralHandler: "staff-9",
	}, referral)
	assertCode(t, err, appErrors.ErrValidation.Code)

	// Date without handler fails.
	err = ValidateTransition(ChangeStatusRequest{
		Status:       models.StatusDrop,
		ReferralDate: &date,
	}, referral)
	assertCode(t, err, appErrors.ErrValidation.Code)

	// Both present passes, both absent passes.
	assert.NoError(t, ValidateTransition(ChangeStatusRequest{
		Status:          models.StatusDrop,
		ReferralHandler: "staff-9",
		ReferralDate:    &date,
	}, referral))
	assert.NoError(t, ValidateTransition(ChangeStatusRequest{Status: models.StatusDrop}, referral))

	// Entities without the referral rule ignore the pairing.
	assert.NoError(t, ValidateTransition(ChangeStatusRequest{
		Status:          models.StatusDrop,
		ReferralHandler: "staff-9",
	}, nil))
}

func TestValidateTransitionFlatGraph(t *testing.T) {
	// Any state is reachable from any other; the validator only checks
	// fields, never the previous state.
	for _, state := range []models.StatusState{
		models.StatusTrial, models.StatusRegular, models.StatusDrop, models.StatusCompleted,
	} {
		assert.NoError(t, ValidateTransition(ChangeStatusRequest{Status: state}, nil))
	}
}

func TestEffectiveDateDefaultsToNow(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now, ChangeStatusRequest{Status: models.StatusRegular}.EffectiveDate(now))

	explicit := now.AddDate(0, -1, 0)
	req := ChangeStatusRequest{Status: models.StatusRegular, Date: &explicit}
	assert.Equal(t, explicit, req.EffectiveDate(now))
}
