package models

import "time"

// Teacher represents a faculty record.
type Teacher struct {
	ID         string    `db:"id" json:"id"`
	EmployeeNo string    `db:"employee_no" json:"employee_no"`
	FirstName  string    `db:"first_name" json:"first_name"`
	MiddleName string    `db:"middle_name" json:"middle_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Email      string    `db:"email" json:"email"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	Position   *string   `db:"position" json:"position,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders the teacher's display name.
func (t Teacher) FullName() string {
	return FormatName(t.FirstName, t.MiddleName, t.LastName)
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
}
