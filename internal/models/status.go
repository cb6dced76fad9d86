package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StatusState enumerates the lifecycle states an entity can be in.
type StatusState string

const (
	StatusTrial     StatusState = "TRIAL"
	StatusRegular   StatusState = "REGULAR"
	StatusDrop      StatusState = "DROP"
	StatusFreeze    StatusState = "FREEZE"
	StatusCompleted StatusState = "COMPLETED"
)

// Valid reports whether the state is one of the known lifecycle states.
func (s StatusState) Valid() bool {
	switch s {
	case StatusTrial, StatusRegular, StatusDrop, StatusFreeze, StatusCompleted:
		return true
	}
	return false
}

// FreezePhase is the derived sub-state of the most recent freeze period.
// It is computed against wall-clock time on every read and is distinct
// from the authoritative CurrentStatus scalar.
type FreezePhase string

const (
	FreezePhaseNone      FreezePhase = "NONE"
	FreezePhaseActive    FreezePhase = "ACTIVE"
	FreezePhaseScheduled FreezePhase = "SCHEDULED_TO_END"
	FreezePhaseCompleted FreezePhase = "COMPLETED"
)

// EntityType identifies which portal entity owns a status record.
type EntityType string

const (
	EntityClient  EntityType = "CLIENT"
	EntityStudent EntityType = "STUDENT"
	EntityStaff   EntityType = "STAFF"
)

// Valid reports whether the entity type is known.
func (t EntityType) Valid() bool {
	switch t {
	case EntityClient, EntityStudent, EntityStaff:
		return true
	}
	return false
}

// AuditStamp records who performed a ledger mutation and when.
type AuditStamp struct {
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
}

// StatusEntry is one period spent in a state bucket.
//
// An entry with no EndDate is "open" (the period is in progress).
// An entry with ScheduledBy set is a forward-dated annotation recorded
// as a side effect of closing a freeze early; it is not in effect and
// never counts as open.
type StatusEntry struct {
	Date        time.Time   `json:"date"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	AddedBy     AuditStamp  `json:"added_by"`
	EndedBy     *AuditStamp `json:"ended_by,omitempty"`
	ScheduledBy *AuditStamp `json:"scheduled_by,omitempty"`
}

// Open reports whether the entry represents an in-progress period.
// Scheduled annotations are never open.
func (e StatusEntry) Open() bool {
	return e.EndDate == nil && e.ScheduledBy == nil
}

// Scheduled reports whether the entry is a forward-dated annotation.
func (e StatusEntry) Scheduled() bool {
	return e.ScheduledBy != nil
}

// StatusHistory maps a state bucket to its ordered period entries.
type StatusHistory map[StatusState][]StatusEntry

// Value serializes the history for JSONB storage.
func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h)
}

// Scan deserializes the history from its JSONB column.
func (h *StatusHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = StatusHistory{}
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported status history source type %T", src)
	}
}

// StatusRecord is the per-entity status ledger: an authoritative scalar
// plus the full per-bucket period history.
//
// CurrentStatus is a cache written on every transition, never silently
// reconciled with elapsed time; a lapsed freeze is detected at read
// time via the freeze phase.
type StatusRecord struct {
	EntityType    EntityType    `db:"entity_type" json:"entity_type"`
	EntityID      string        `db:"entity_id" json:"entity_id"`
	CurrentStatus StatusState   `db:"current_status" json:"current_status"`
	History       StatusHistory `db:"history" json:"history"`
	Version       int           `db:"version" json:"-"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// NewStatusRecord initialises an empty record for an entity.
func NewStatusRecord(entityType EntityType, entityID string, initial StatusState) *StatusRecord {
	return &StatusRecord{
		EntityType:    entityType,
		EntityID:      entityID,
		CurrentStatus: initial,
		History:       StatusHistory{},
	}
}

// StatusOverview is the derived read model served to clients.
type StatusOverview struct {
	EntityType    EntityType   `json:"entity_type"`
	EntityID      string       `json:"entity_id"`
	CurrentStatus StatusState  `json:"current_status"`
	FreezePhase   FreezePhase  `json:"freeze_phase"`
	FreezeSpan    string       `json:"freeze_span,omitempty"`
	FreezeEntry   *StatusEntry `json:"freeze_entry,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
