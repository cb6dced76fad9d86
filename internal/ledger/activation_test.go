package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

func TestToggleDeactivateRecordsEvent(t *testing.T) {
	rec := models.NewActivationRecord("stu-42", "asg-7")
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := Toggle(rec, false, "admin-2", "dropped", now)
	require.NoError(t, err)

	assert.False(t, rec.IsActive)
	require.Len(t, rec.DeactivationHistory, 1)
	assert.Equal(t, "admin-2", rec.DeactivationHistory[0].ActorID)
	assert.Equal(t, "dropped", rec.DeactivationHistory[0].Reason)
	require.NotNil(t, rec.LastDeactivatedAt)
	assert.Equal(t, now, *rec.LastDeactivatedAt)
	assert.Nil(t, rec.LastActivatedAt)
	assert.Empty(t, rec.ActivationHistory)
}

func TestToggleRedundantIsNoOp(t *testing.T) {
	rec := models.NewActivationRecord("stu-42", "asg-7")
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, Toggle(rec, false, "admin-2", "dropped", now))

	err := Toggle(rec, false, "admin-2", "dropped again", now.Add(time.Minute))
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrNoOpToggle.Code)

	// History and flag untouched by the rejected call.
	assert.Len(t, rec.DeactivationHistory, 1)
	assert.False(t, rec.IsActive)
}

func TestToggleActivateOnFreshRecordIsNoOp(t *testing.T) {
	// Fresh pairs are active by default, so activating is redundant.
	rec := models.NewActivationRecord("stu-42", "asg-7")

	err := Toggle(rec, true, "admin-1", "", time.Now().UTC())
	assertCode(t, err, appErrors.ErrNoOpToggle.Code)
	assert.Empty(t, rec.ActivationHistory)
}

func TestToggleRoundTripMaintainsPointers(t *testing.T) {
	rec := models.NewActivationRecord("stu-42", "asg-7")
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	require.NoError(t, Toggle(rec, false, "admin-1", "break", t0))
	require.NoError(t, Toggle(rec, true, "admin-2", "returned", t1))

	assert.True(t, rec.IsActive)
	require.Len(t, rec.ActivationHistory, 1)
	require.Len(t, rec.DeactivationHistory, 1)
	assert.Equal(t, t1, *rec.LastActivatedAt)
	assert.Equal(t, t0, *rec.LastDeactivatedAt)
}

func TestIsActiveDefaultsTrue(t *testing.T) {
	assert.True(t, IsActive(nil))

	rec := models.NewActivationRecord("stu-42", "asg-7")
	assert.True(t, IsActive(rec))
	require.NoError(t, Toggle(rec, false, "admin-1", "", time.Now().UTC()))
	assert.False(t, IsActive(rec))
}
