package ledger

import (
	"fmt"
	"time"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

// BeginFreeze records a freeze period starting at startDate.
//
// A bounded freeze (endDate supplied) is written already closed: the
// end is part of the period as recorded, not a later mutation. When the
// supplied end lies in the future, an inert scheduled entry is also
// appended to the REGULAR bucket so auditors can see the intended
// return date. Nothing ever promotes that annotation to authoritative
// status; CurrentStatus becomes FREEZE either way.
func BeginFreeze(rec *models.StatusRecord, startDate time.Time, endDate *time.Time, actor string, now time.Time) (*models.StatusEntry, error) {
	if endDate != nil && endDate.Before(startDate) {
		return nil, appErrors.ErrInvalidRange
	}
	if rec.History == nil {
		rec.History = models.StatusHistory{}
	}
	if idx := openIndex(rec.History[models.StatusFreeze]); idx >= 0 {
		return nil, appErrors.Clone(appErrors.ErrLedgerConflict, "a freeze period is already open")
	}

	entry := models.StatusEntry{
		Date:    startDate,
		EndDate: endDate,
		AddedBy: models.AuditStamp{ActorID: actor, At: now},
	}
	rec.History[models.StatusFreeze] = append(rec.History[models.StatusFreeze], entry)

	if endDate != nil && endDate.After(now) {
		scheduled := models.StatusEntry{
			Date:        *endDate,
			AddedBy:     models.AuditStamp{ActorID: actor, At: now},
			ScheduledBy: &models.AuditStamp{ActorID: actor, At: now},
		}
		rec.History[models.StatusRegular] = append(rec.History[models.StatusRegular], scheduled)
	}

	rec.CurrentStatus = models.StatusFreeze
	return &rec.History[models.StatusFreeze][len(rec.History[models.StatusFreeze])-1], nil
}

// EndFreeze closes the currently open freeze period. A nil endDate
// closes it at now. Used when an actor moves the entity away from
// FREEZE while an indefinite freeze is running.
func EndFreeze(rec *models.StatusRecord, endDate *time.Time, actor string, now time.Time) (*models.StatusEntry, error) {
	end := now
	if endDate != nil {
		end = *endDate
	}
	return Close(rec, models.StatusFreeze, end, actor, now)
}

// LatestFreeze returns the most recent freeze entry by start date, or
// nil when the entity has never been frozen.
func LatestFreeze(rec *models.StatusRecord) *models.StatusEntry {
	entries := rec.History[models.StatusFreeze]
	best := -1
	for i, e := range entries {
		if best < 0 || e.Date.After(entries[best].Date) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return &entries[best]
}

// DerivePhase computes the phase of the most recent freeze period
// against the supplied clock. The result changes with elapsed time
// alone, so it must be recomputed on every read.
//
// COMPLETED can coexist with CurrentStatus == FREEZE: the scalar is
// never reconciled automatically, and surfacing the lapsed period is
// the caller's responsibility.
func DerivePhase(rec *models.StatusRecord, now time.Time) models.FreezePhase {
	entry := LatestFreeze(rec)
	switch {
	case entry == nil:
		return models.FreezePhaseNone
	case entry.EndDate == nil:
		return models.FreezePhaseActive
	case now.Before(*entry.EndDate):
		return models.FreezePhaseScheduled
	default:
		return models.FreezePhaseCompleted
	}
}

// SpanDuration returns the elapsed span of an entry: end minus start
// for closed periods, now minus start for open ones.
func SpanDuration(entry models.StatusEntry, now time.Time) time.Duration {
	end := now
	if entry.EndDate != nil {
		end = *entry.EndDate
	}
	if end.Before(entry.Date) {
		return 0
	}
	return end.Sub(entry.Date)
}

// FormatSpan renders an entry's span for display: hours under a day,
// days under thirty, months under a year, then years and months.
func FormatSpan(entry models.StatusEntry, now time.Time) string {
	span := SpanDuration(entry, now)
	days := int(span.Hours() / 24)
	switch {
	case days < 1:
		hours := int(span.Hours())
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	case days < 30:
		return fmt.Sprintf("%d %s", days, plural(days, "day"))
	case days < 365:
		months := days / 30
		return fmt.Sprintf("%d %s", months, plural(months, "month"))
	default:
		years := days / 365
		months := (days % 365) / 30
		if months == 0 {
			return fmt.Sprintf("%d %s", years, plural(years, "year"))
		}
		return fmt.Sprintf("%d %s %d %s", years, plural(years, "year"), months, plural(months, "month"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
