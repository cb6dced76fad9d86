package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

func newRecord() *models.StatusRecord {
	return models.NewStatusRecord(models.EntityStudent, "stu-1", models.StatusTrial)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, code, appErr.Code)
}

func TestOpenAppendsOpenEntry(t *testing.T) {
	rec := newRecord()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	entry, err := Open(rec, models.StatusRegular, date, "admin-1", now)
	require.NoError(t, err)
	assert.True(t, entry.Open())
	assert.Equal(t, "admin-1", entry.AddedBy.ActorID)
	assert.Equal(t, now, entry.AddedBy.At)
	require.Len(t, rec.History[models.StatusRegular], 1)
}

func TestOpenRejectsSecondOpenEntry(t *testing.T) {
	rec := newRecord()
	now := time.Now().UTC()

	_, err := Open(rec, models.StatusRegular, now, "admin-1", now)
	require.NoError(t, err)

	_, err = Open(rec, models.StatusRegular, now.Add(time.Hour), "admin-2", now)
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrLedgerConflict.Code)
	require.Len(t, rec.History[models.StatusRegular], 1)
}

func TestOpenAfterCloseRecordsFreshEntry(t *testing.T) {
	rec := newRecord()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := Open(rec, models.StatusTrial, now, "admin-1", now)
	require.NoError(t, err)
	_, err = Close(rec, models.StatusTrial, now.Add(24*time.Hour), "admin-1", now.Add(24*time.Hour))
	require.NoError(t, err)

	// Re-selecting the same status still opens a new period.
	_, err = Open(rec, models.StatusTrial, now.Add(48*time.Hour), "admin-1", now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Len(t, rec.History[models.StatusTrial], 2)
	assert.Equal(t, 1, countOpen(rec.History[models.StatusTrial]))
}

func TestCloseSetsEndDateAndAuditStamp(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	_, err := Open(rec, models.StatusRegular, start, "admin-1", start)
	require.NoError(t, err)

	entry, err := Close(rec, models.StatusRegular, end, "admin-2", end)
	require.NoError(t, err)
	require.NotNil(t, entry.EndDate)
	assert.Equal(t, end, *entry.EndDate)
	require.NotNil(t, entry.EndedBy)
	assert.Equal(t, "admin-2", entry.EndedBy.ActorID)
	assert.Nil(t, CurrentOpen(rec, models.StatusRegular))
}

func TestCloseWithoutOpenEntryFails(t *testing.T) {
	rec := newRecord()
	now := time.Now().UTC()

	_, err := Close(rec, models.StatusRegular, now, "admin-1", now)
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrNoOpenEntry.Code)
}

func TestCloseRejectsEndBeforeStart(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := Open(rec, models.StatusRegular, start, "admin-1", start)
	require.NoError(t, err)

	_, err = Close(rec, models.StatusRegular, start.Add(-time.Hour), "admin-1", start)
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrInvalidRange.Code)
	require.NotNil(t, CurrentOpen(rec, models.StatusRegular))
}

func TestClosePicksLatestOpenEntry(t *testing.T) {
	// A record imported with two open entries in the same bucket.
	// Close must pick the most recently opened one.
	rec := newRecord()
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rec.History[models.StatusRegular] = []models.StatusEntry{
		{Date: early, AddedBy: models.AuditStamp{ActorID: "import", At: early}},
		{Date: late, AddedBy: models.AuditStamp{ActorID: "import", At: late}},
	}

	closed, err := Close(rec, models.StatusRegular, late.AddDate(0, 1, 0), "admin-1", late.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, late, closed.Date)
	assert.True(t, rec.History[models.StatusRegular][0].Open())
}

func TestCurrentOpenIgnoresScheduledEntries(t *testing.T) {
	rec := newRecord()
	future := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stamp := models.AuditStamp{ActorID: "admin-1", At: time.Now().UTC()}
	rec.History[models.StatusRegular] = []models.StatusEntry{
		{Date: future, AddedBy: stamp, ScheduledBy: &stamp},
	}

	assert.Nil(t, CurrentOpen(rec, models.StatusRegular))
	_, err := Close(rec, models.StatusRegular, future, "admin-1", future)
	assertCode(t, err, appErrors.ErrNoOpenEntry.Code)
}

func TestSingleOpenInvariantAcrossSequence(t *testing.T) {
	rec := newRecord()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	states := []models.StatusState{
		models.StatusTrial, models.StatusRegular, models.StatusTrial,
		models.StatusRegular, models.StatusDrop, models.StatusRegular,
	}

	prev := models.StatusState("")
	for i, state := range states {
		at := now.Add(time.Duration(i) * 24 * time.Hour)
		if prev != "" {
			_, err := Close(rec, prev, at, "admin-1", at)
			require.NoError(t, err)
		}
		_, err := Open(rec, state, at, "admin-1", at)
		require.NoError(t, err)
		prev = state
	}

	for state, entries := range rec.History {
		assert.LessOrEqual(t, countOpen(entries), 1, "bucket %s", state)
	}
}

func countOpen(entries []models.StatusEntry) int {
	n := 0
	for _, e := range entries {
		if e.Open() {
			n++
		}
	}
	return n
}
