package models

import "time"

// Staff represents an employed teacher or supervisor.
type Staff struct {
	ID        string    `db:"id" json:"id"`
	NIP       string    `db:"nip" json:"nip"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Position  string    `db:"position" json:"position"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffDetail contains staff information with its current status.
type StaffDetail struct {
	Staff
	CurrentStatus *StatusState `db:"current_status" json:"current_status,omitempty"`
}

// StaffFilter captures supported filters for listing staff.
type StaffFilter struct {
	Search    string
	Position  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
