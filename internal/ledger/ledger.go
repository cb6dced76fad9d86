// Package ledger implements the temporal status and activation ledger:
// per-bucket status period history, freeze period rules, and the
// enable/disable ledger for subject assignments.
//
// The package is pure. It mutates records in memory and performs no
// I/O; callers supply the acting user and the current time on every
// operation, and persist the mutated record themselves.
package ledger

import (
	"time"

	"github.com/noah-isme/edu-portal-api/internal/models"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
)

// Open appends a new open entry to the given state bucket.
//
// A bucket may hold at most one open entry at a time; opening a bucket
// that already has one fails with LEDGER_CONFLICT. Re-entering a state
// is valid once the previous period is closed, and still records a
// fresh entry.
func Open(rec *models.StatusRecord, state models.StatusState, date time.Time, actor string, now time.Time) (*models.StatusEntry, error) {
	if rec.History == nil {
		rec.History = models.StatusHistory{}
	}
	if idx := openIndex(rec.History[state]); idx >= 0 {
		return nil, appErrors.Clone(appErrors.ErrLedgerConflict, "bucket "+string(state)+" already has an open entry")
	}
	entry := models.StatusEntry{
		Date:    date,
		AddedBy: models.AuditStamp{ActorID: actor, At: now},
	}
	rec.History[state] = append(rec.History[state], entry)
	return &rec.History[state][len(rec.History[state])-1], nil
}

// Close ends the open entry in the given state bucket.
//
// If earlier contract violations left multiple entries open, the most
// recently opened one (latest date) is closed. Fails with NO_OPEN_ENTRY
// when the bucket has nothing open, and with INVALID_RANGE when endDate
// precedes the entry's start.
func Close(rec *models.StatusRecord, state models.StatusState, endDate time.Time, actor string, now time.Time) (*models.StatusEntry, error) {
	idx := openIndex(rec.History[state])
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNoOpenEntry, "no open entry in bucket "+string(state))
	}
	entry := &rec.History[state][idx]
	if endDate.Before(entry.Date) {
		return nil, appErrors.ErrInvalidRange
	}
	entry.EndDate = &endDate
	entry.EndedBy = &models.AuditStamp{ActorID: actor, At: now}
	return entry, nil
}

// CurrentOpen returns the open entry in the given state bucket, or nil.
func CurrentOpen(rec *models.StatusRecord, state models.StatusState) *models.StatusEntry {
	idx := openIndex(rec.History[state])
	if idx < 0 {
		return nil
	}
	return &rec.History[state][idx]
}

// openIndex returns the index of the open entry with the latest start
// date, or -1. Scheduled annotations are not in effect and never count
// as open.
func openIndex(entries []models.StatusEntry) int {
	best := -1
	for i, e := range entries {
		if !e.Open() {
			continue
		}
		if best < 0 || e.Date.After(entries[best].Date) {
			best = i
		}
	}
	return best
}
