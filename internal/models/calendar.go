package models

import "time"

// CalendarEventType classifies academic calendar entries.
type CalendarEventType string

const (
	CalendarEventClassDay CalendarEventType = "CLASS_DAY"
	CalendarEventHoliday  CalendarEventType = "HOLIDAY"
	CalendarEventExam     CalendarEventType = "EXAM"
	CalendarEventActivity CalendarEventType = "ACTIVITY"
	CalendarEventNoClass  CalendarEventType = "NO_CLASS"
)

// Valid reports whether t is a known event type.
func (t CalendarEventType) Valid() bool {
	switch t {
	case CalendarEventClassDay, CalendarEventHoliday, CalendarEventExam, CalendarEventActivity, CalendarEventNoClass:
		return true
	}
	return false
}

// CalendarEvent represents an academic calendar entry.
type CalendarEvent struct {
	ID             string            `db:"id" json:"id"`
	AcademicYearID string            `db:"academic_year_id" json:"academic_year_id"`
	Title          string            `db:"title" json:"title"`
	Description    string            `db:"description" json:"description"`
	EventType      CalendarEventType `db:"event_type" json:"event_type"`
	StartDate      time.Time         `db:"start_date" json:"start_date"`
	EndDate        time.Time         `db:"end_date" json:"end_date"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// CalendarEventDetail includes the academic year label.
type CalendarEventDetail struct {
	CalendarEvent
	AcademicYearName string `db:"academic_year_name" json:"academic_year_name"`
}

// CalendarFilter narrows down events.
type CalendarFilter struct {
	Search         string
	AcademicYearID string
	EventType      CalendarEventType
	Page           int
	PageSize       int
}
