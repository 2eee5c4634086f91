package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled    EnrollmentStatus = "ENROLLED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusDropped     EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted   EnrollmentStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusTransferred, EnrollmentStatusDropped, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// Enrollment captures a student's registration to a year level within an academic year.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	YearLevelID    string           `db:"year_level_id" json:"year_level_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	SectionID      *string          `db:"section_id" json:"section_id,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt     time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentRecord is the joined row read from storage. Older rows carry the
// legacy grade_level integer instead of a year level reference, and the
// student id may only be available through the student join.
type EnrollmentRecord struct {
	ID               string     `db:"id"`
	StudentID        *string    `db:"student_id"`
	StudentRefID     *string    `db:"student_ref_id"`
	LRN              *string    `db:"lrn"`
	FirstName        *string    `db:"first_name"`
	MiddleName       *string    `db:"middle_name"`
	LastName         *string    `db:"last_name"`
	YearLevelID      *string    `db:"year_level_id"`
	YearLevelName    *string    `db:"year_level_name"`
	GradeLevel       *int       `db:"grade_level"`
	AcademicYearID   *string    `db:"academic_year_id"`
	AcademicYearName *string    `db:"academic_year_name"`
	SectionID        *string    `db:"section_id"`
	SectionName      *string    `db:"section_name"`
	Status           string     `db:"status"`
	EnrolledAt       *time.Time `db:"enrolled_at"`
}

// EnrollmentFilter provides exact-match filters for listing enrollments.
type EnrollmentFilter struct {
	Search         string
	AcademicYearID string
	YearLevelID    string
	SectionID      string
	Status         EnrollmentStatus
	Page           int
	PageSize       int
}

// Matches applies the exact-match filters to a normalized row.
func (f EnrollmentFilter) Matches(row EnrollmentRow) bool {
	if f.AcademicYearID != "" && row.AcademicYear.ID != f.AcademicYearID {
		return false
	}
	if f.YearLevelID != "" && row.YearLevel.ID != f.YearLevelID {
		return false
	}
	if f.SectionID != "" && (row.Section == nil || row.Section.ID != f.SectionID) {
		return false
	}
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	return true
}
