package models

import "time"

// ScheduleDays lists the weekdays accepted for teaching slots.
var ScheduleDays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// TeacherSchedule is one weekly teaching slot.
type TeacherSchedule struct {
	ID             string    `db:"id" json:"id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	SectionID      string    `db:"section_id" json:"section_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Subject        string    `db:"subject" json:"subject"`
	DayOfWeek      string    `db:"day_of_week" json:"day_of_week"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	Room           *string   `db:"room" json:"room,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherScheduleDetail enriches a slot with display names.
type TeacherScheduleDetail struct {
	TeacherSchedule
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
	SectionName   string `db:"section_name" json:"section_name"`
	YearLevelName string `db:"year_level_name" json:"year_level_name"`
}

// TeacherScheduleFilter defines list criteria.
type TeacherScheduleFilter struct {
	Search         string
	TeacherID      string
	SectionID      string
	AcademicYearID string
	Page           int
	PageSize       int
}

// Advisory pairs a section with its adviser.
type Advisory struct {
	SectionID        string  `db:"section_id" json:"section_id"`
	SectionName      string  `db:"section_name" json:"section_name"`
	AcademicYearID   string  `db:"academic_year_id" json:"academic_year_id"`
	AcademicYearName string  `db:"academic_year_name" json:"academic_year_name"`
	YearLevelName    string  `db:"year_level_name" json:"year_level_name"`
	AdviserID        *string `db:"adviser_id" json:"adviser_id,omitempty"`
	AdviserName      *string `db:"adviser_name" json:"adviser_name,omitempty"`
}
