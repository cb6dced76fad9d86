package models

import "time"

// Subject represents an academic subject offered by the institution.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Track     string    `db:"track" json:"track"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Track     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SubjectAssignment links a student to a subject taught by a staff member.
// It is the sub-resource whose enable/disable history the activation
// ledger tracks.
type SubjectAssignment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SubjectAssignmentDetail enriches assignments with descriptive fields.
type SubjectAssignmentDetail struct {
	SubjectAssignment
	SubjectCode string  `db:"subject_code" json:"subject_code"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	StudentName string  `db:"student_name" json:"student_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	IsActive    *bool   `db:"is_active" json:"is_active,omitempty"`
}

// SubjectAssignmentFilter constrains assignment listing queries.
type SubjectAssignmentFilter struct {
	StudentID string
	SubjectID string
	TeacherID string
	Page      int
	PageSize  int
}
