package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID        string    `db:"id" json:"id"`
	NIS       string    `db:"nis" json:"nis"`
	FullName  string    `db:"full_name" json:"full_name"`
	Gender    string    `db:"gender" json:"gender"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	ClientID  string    `db:"client_id" json:"client_id"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with status context.
type StudentDetail struct {
	Student
	ClientName    *string      `db:"client_name" json:"client_name,omitempty"`
	CurrentStatus *StatusState `db:"current_status" json:"current_status,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClientID  string
	Status    StatusState
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
