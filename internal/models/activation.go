package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActivationEvent is one enable or disable action on a subject assignment.
type ActivationEvent struct {
	At      time.Time `json:"at"`
	ActorID string    `json:"actor_id"`
	Reason  string    `json:"reason,omitempty"`
}

// ActivationEvents is an ordered event list stored as JSONB.
type ActivationEvents []ActivationEvent

// Value serializes the event list for JSONB storage.
func (ev ActivationEvents) Value() (driver.Value, error) {
	if ev == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ev)
}

// Scan deserializes the event list from its JSONB column.
func (ev *ActivationEvents) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ev = ActivationEvents{}
		return nil
	case []byte:
		return json.Unmarshal(v, ev)
	case string:
		return json.Unmarshal([]byte(v), ev)
	default:
		return fmt.Errorf("unsupported activation events source type %T", src)
	}
}

// ActivationRecord tracks the enable/disable ledger for one
// (student, subject assignment) pair. It is created lazily on the first
// toggle; a pair without a record is active by default.
//
// LastActivatedAt / LastDeactivatedAt duplicate the tail of each history
// so current-state display never scans the full ledger.
type ActivationRecord struct {
	ID                  string           `db:"id" json:"id"`
	StudentID           string           `db:"student_id" json:"student_id"`
	SubjectAssignmentID string           `db:"subject_assignment_id" json:"subject_assignment_id"`
	IsActive            bool             `db:"is_active" json:"is_active"`
	ActivationHistory   ActivationEvents `db:"activation_history" json:"activation_history"`
	DeactivationHistory ActivationEvents `db:"deactivation_history" json:"deactivation_history"`
	LastActivatedAt     *time.Time       `db:"last_activated_at" json:"last_activated_at,omitempty"`
	LastDeactivatedAt   *time.Time       `db:"last_deactivated_at" json:"last_deactivated_at,omitempty"`
	Version             int              `db:"version" json:"-"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// NewActivationRecord initialises the default (active, empty history)
// record for a pair.
func NewActivationRecord(studentID, assignmentID string) *ActivationRecord {
	return &ActivationRecord{
		StudentID:           studentID,
		SubjectAssignmentID: assignmentID,
		IsActive:            true,
		ActivationHistory:   ActivationEvents{},
		DeactivationHistory: ActivationEvents{},
	}
}
