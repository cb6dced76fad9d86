package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

func TestBeginFreezeIndefinite(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	entry, err := BeginFreeze(rec, start, nil, "admin-1", now)
	require.NoError(t, err)
	assert.Nil(t, entry.EndDate)
	assert.Equal(t, models.StatusFreeze, rec.CurrentStatus)
	assert.Equal(t, models.FreezePhaseActive, DerivePhase(rec, now))
	assert.Empty(t, rec.History[models.StatusRegular])
}

func TestBeginFreezeBoundedFutureSchedulesReturn(t *testing.T) {
	// spec example: freeze 2025-01-01..2025-02-01 recorded at 2025-01-10.
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	entry, err := BeginFreeze(rec, start, &end, "admin-1", now)
	require.NoError(t, err)

	// Bounded freeze is written closed at creation.
	require.NotNil(t, entry.EndDate)
	assert.Equal(t, end, *entry.EndDate)
	assert.Nil(t, entry.EndedBy)

	// The scalar becomes FREEZE even though the period carries an end.
	assert.Equal(t, models.StatusFreeze, rec.CurrentStatus)
	assert.Equal(t, models.FreezePhaseScheduled, DerivePhase(rec, now))

	// An inert scheduled entry lands in the REGULAR bucket.
	require.Len(t, rec.History[models.StatusRegular], 1)
	scheduled := rec.History[models.StatusRegular][0]
	assert.True(t, scheduled.Scheduled())
	assert.Equal(t, end, scheduled.Date)
	assert.Equal(t, "admin-1", scheduled.ScheduledBy.ActorID)
	assert.Equal(t, now, scheduled.ScheduledBy.At)

	// Re-reading after the end date with no further writes: the phase
	// lapses but the scalar stays stale by design.
	later := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.FreezePhaseCompleted, DerivePhase(rec, later))
	assert.Equal(t, models.StatusFreeze, rec.CurrentStatus)
}

func TestBeginFreezePastEndDoesNotSchedule(t *testing.T) {
	rec := newRecord()
	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := BeginFreeze(rec, start, &end, "admin-1", now)
	require.NoError(t, err)
	assert.Empty(t, rec.History[models.StatusRegular])
	assert.Equal(t, models.FreezePhaseCompleted, DerivePhase(rec, now))
	assert.Equal(t, models.StatusFreeze, rec.CurrentStatus)
}

func TestBeginFreezeRejectsInvertedRange(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := BeginFreeze(rec, start, &end, "admin-1", start)
	require.Error(t, err)
	assertCode(t, err, appErrors.ErrInvalidRange.Code)
	assert.Empty(t, rec.History[models.StatusFreeze])
}

func TestBeginFreezeRejectsOpenFreeze(t *testing.T) {
	rec := newRecord()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := BeginFreeze(rec, now, nil, "admin-1", now)
	require.NoError(t, err)
	_, err = BeginFreeze(rec, now.AddDate(0, 1, 0), nil, "admin-1", now.AddDate(0, 1, 0))
	assertCode(t, err, appErrors.ErrLedgerConflict.Code)
}

func TestEndFreezeClosesLatestOpenPeriod(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := BeginFreeze(rec, start, nil, "admin-1", start)
	require.NoError(t, err)

	entry, err := EndFreeze(rec, nil, "admin-2", now)
	require.NoError(t, err)
	require.NotNil(t, entry.EndDate)
	assert.Equal(t, now, *entry.EndDate)
	assert.Equal(t, "admin-2", entry.EndedBy.ActorID)
}

func TestEndFreezeWithExplicitDate(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := BeginFreeze(rec, start, nil, "admin-1", start)
	require.NoError(t, err)

	entry, err := EndFreeze(rec, &end, "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, end, *entry.EndDate)
}

func TestEndFreezeWithoutOpenPeriodFails(t *testing.T) {
	rec := newRecord()
	now := time.Now().UTC()

	_, err := EndFreeze(rec, nil, "admin-1", now)
	assertCode(t, err, appErrors.ErrNoOpenEntry.Code)
}

func TestDerivePhaseNone(t *testing.T) {
	rec := newRecord()
	assert.Equal(t, models.FreezePhaseNone, DerivePhase(rec, time.Now().UTC()))
}

func TestDerivePhaseBoundaries(t *testing.T) {
	rec := newRecord()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := BeginFreeze(rec, start, &end, "admin-1", start)
	require.NoError(t, err)

	assert.Equal(t, models.FreezePhaseScheduled, DerivePhase(rec, end.Add(-time.Second)))
	// now >= end counts as completed.
	assert.Equal(t, models.FreezePhaseCompleted, DerivePhase(rec, end))
	assert.Equal(t, models.FreezePhaseCompleted, DerivePhase(rec, end.Add(time.Second)))
}

func TestDerivePhaseUsesLatestFreeze(t *testing.T) {
	rec := newRecord()
	oldStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	stamp := models.AuditStamp{ActorID: "import", At: oldStart}
	rec.History[models.StatusFreeze] = []models.StatusEntry{
		{Date: oldStart, EndDate: &oldEnd, AddedBy: stamp, EndedBy: &stamp},
	}

	newStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := BeginFreeze(rec, newStart, nil, "admin-1", newStart)
	require.NoError(t, err)

	assert.Equal(t, models.FreezePhaseActive, DerivePhase(rec, newStart.AddDate(0, 1, 0)))
}

func TestSpanDurationMonotonicForOpenEntry(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := models.StatusEntry{Date: start}

	prev := time.Duration(-1)
	for _, offset := range []time.Duration{0, time.Hour, 24 * time.Hour, 40 * 24 * time.Hour, 400 * 24 * time.Hour} {
		span := SpanDuration(entry, start.Add(offset))
		assert.GreaterOrEqual(t, span, prev)
		prev = span
	}
}

func TestFormatSpanBuckets(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		span time.Duration
		want string
	}{
		{"under a day", 5 * time.Hour, "5 hours"},
		{"single hour", time.Hour, "1 hour"},
		{"days", 12 * 24 * time.Hour, "12 days"},
		{"single day boundary", 24 * time.Hour, "1 day"},
		{"months", 75 * 24 * time.Hour, "2 months"},
		{"months truncate", 364 * 24 * time.Hour, "12 months"},
		{"years", 365 * 24 * time.Hour, "1 year"},
		{"years and months", (365 + 70) * 24 * time.Hour, "1 year 2 months"},
		{"multiple years", (2*365 + 40) * 24 * time.Hour, "2 years 1 month"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := models.StatusEntry{Date: start}
			assert.Equal(t, tc.want, FormatSpan(entry, start.Add(tc.span)))
		})
	}
}

func TestFormatSpanClosedEntryIgnoresNow(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	entry := models.StatusEntry{Date: start, EndDate: &end}

	assert.Equal(t, "2 days", FormatSpan(entry, start.AddDate(1, 0, 0)))
}
