package models

import (
	"strings"
	"time"
)

// Student represents a learner registered in the school.
type Student struct {
	ID              string    `db:"id" json:"id"`
	LRN             string    `db:"lrn" json:"lrn"`
	FirstName       string    `db:"first_name" json:"first_name"`
	MiddleName      string    `db:"middle_name" json:"middle_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Gender          string    `db:"gender" json:"gender"`
	BirthDate       time.Time `db:"birth_date" json:"birth_date"`
	Address         string    `db:"address" json:"address"`
	GuardianName    string    `db:"guardian_name" json:"guardian_name"`
	GuardianContact string    `db:"guardian_contact" json:"guardian_contact"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders "Last, First Middle" the way school forms list learners.
func (s Student) FullName() string {
	return FormatName(s.FirstName, s.MiddleName, s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Gender   string
	Page     int
	PageSize int
}

// FormatName joins name parts as "Last, First Middle", skipping blanks.
func FormatName(first, middle, last string) string {
	given := strings.TrimSpace(strings.Join(nonEmpty(first, middle), " "))
	last = strings.TrimSpace(last)
	switch {
	case last == "":
		return given
	case given == "":
		return last
	default:
		return last + ", " + given
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
