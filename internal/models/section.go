package models

import "time"

// Section is a class group of one year level within one academic year.
type Section struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	YearLevelID    string    `db:"year_level_id" json:"year_level_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	AdviserID      *string   `db:"adviser_id" json:"adviser_id,omitempty"`
	Capacity       int       `db:"capacity" json:"capacity"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail adds the names shown in the sections table.
type SectionDetail struct {
	Section
	YearLevelName    string  `db:"year_level_name" json:"year_level_name"`
	AcademicYearName string  `db:"academic_year_name" json:"academic_year_name"`
	AdviserName      *string `db:"adviser_name" json:"adviser_name,omitempty"`
}

// SectionFilter defines list criteria.
type SectionFilter struct {
	Search         string
	YearLevelID    string
	AcademicYearID string
	Page           int
	PageSize       int
}
