package models

import "time"

// Client represents a paying client account in the portal.
type Client struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClientDetail contains client information with its current status.
type ClientDetail struct {
	Client
	CurrentStatus *StatusState `db:"current_status" json:"current_status,omitempty"`
}

// ClientFilter captures supported filters for listing clients.
type ClientFilter struct {
	Search    string
	Status    StatusState
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
