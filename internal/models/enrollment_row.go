package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrIncompleteEnrollment is returned when a payload lacks a student, year
// level or academic year after normalization.
var ErrIncompleteEnrollment = errors.New("enrollment is missing student, year level or academic year")

// Ref is an id/name pair for a related record.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrollmentRow is the canonical enrollment shape used by list views and
// selection. StudentID is the identity key for selection.
type EnrollmentRow struct {
	ID           string           `json:"id"`
	StudentID    string           `json:"student_id"`
	StudentName  string           `json:"student_name"`
	LRN          string           `json:"lrn"`
	YearLevel    Ref              `json:"year_level"`
	AcademicYear Ref              `json:"academic_year"`
	Section      *Ref             `json:"section,omitempty"`
	Status       EnrollmentStatus `json:"status"`
	EnrolledAt   *time.Time       `json:"enrolled_at,omitempty"`
}

// SearchFields is the projection searched by the enrollments table.
func (r EnrollmentRow) SearchFields() []string {
	fields := []string{r.StudentName, r.LRN, r.YearLevel.Name, r.AcademicYear.Name, string(r.Status)}
	if r.Section != nil {
		fields = append(fields, r.Section.Name)
	}
	return fields
}

// NormalizeRecord folds the storage variants into one EnrollmentRow.
func NormalizeRecord(rec EnrollmentRecord) EnrollmentRow {
	row := EnrollmentRow{
		ID:          rec.ID,
		StudentID:   firstNonEmpty(deref(rec.StudentID), deref(rec.StudentRefID)),
		StudentName: FormatName(deref(rec.FirstName), deref(rec.MiddleName), deref(rec.LastName)),
		LRN:         deref(rec.LRN),
		AcademicYear: Ref{
			ID:   deref(rec.AcademicYearID),
			Name: deref(rec.AcademicYearName),
		},
		Status:     EnrollmentStatus(strings.ToUpper(rec.Status)),
		EnrolledAt: rec.EnrolledAt,
	}
	switch {
	case deref(rec.YearLevelID) != "":
		row.YearLevel = Ref{ID: *rec.YearLevelID, Name: deref(rec.YearLevelName)}
	case rec.GradeLevel != nil:
		row.YearLevel = gradeRef(strconv.Itoa(*rec.GradeLevel))
	}
	if id := deref(rec.SectionID); id != "" {
		row.Section = &Ref{ID: id, Name: deref(rec.SectionName)}
	}
	return row
}

// FlexString decodes a JSON string or number into its textual form. null
// decodes to the empty string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

// RawRef is a nested {id, name} object in imported payloads.
type RawRef struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

// RawStudent is the nested student object in imported payloads.
type RawStudent struct {
	ID         FlexString `json:"id"`
	LRN        FlexString `json:"lrn"`
	FirstName  string     `json:"first_name"`
	MiddleName string     `json:"middle_name"`
	LastName   string     `json:"last_name"`
	FullName   string     `json:"full_name"`
}

// RawEnrollment accepts every enrollment shape produced by older clients:
// student_id or student.id, year_level as an object or a scalar, or a bare
// grade_level, and nested or flat academic year and section references.
type RawEnrollment struct {
	ID             FlexString      `json:"id"`
	StudentID      FlexString      `json:"student_id"`
	Student        *RawStudent     `json:"student"`
	YearLevel      json.RawMessage `json:"year_level"`
	YearLevelID    FlexString      `json:"year_level_id"`
	GradeLevel     FlexString      `json:"grade_level"`
	AcademicYear   *RawRef         `json:"academic_year"`
	AcademicYearID FlexString      `json:"academic_year_id"`
	Section        *RawRef         `json:"section"`
	SectionID      FlexString      `json:"section_id"`
	Status         string          `json:"status"`
}

// Normalize converts the payload into an EnrollmentRow.
func (r RawEnrollment) Normalize() (EnrollmentRow, error) {
	row := EnrollmentRow{
		ID:     string(r.ID),
		Status: EnrollmentStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
	}
	if row.Status == "" {
		row.Status = EnrollmentStatusEnrolled
	}

	row.StudentID = string(r.StudentID)
	if r.Student != nil {
		row.StudentID = firstNonEmpty(row.StudentID, string(r.Student.ID))
		row.LRN = string(r.Student.LRN)
		row.StudentName = firstNonEmpty(
			FormatName(r.Student.FirstName, r.Student.MiddleName, r.Student.LastName),
			strings.TrimSpace(r.Student.FullName),
		)
	}

	yearLevel, err := decodeYearLevel(r.YearLevel)
	if err != nil {
		return EnrollmentRow{}, err
	}
	switch {
	case yearLevel.ID != "":
		row.YearLevel = yearLevel
	case r.YearLevelID != "":
		row.YearLevel = Ref{ID: string(r.YearLevelID)}
	case r.GradeLevel != "":
		row.YearLevel = gradeRef(string(r.GradeLevel))
	}

	if r.AcademicYear != nil && r.AcademicYear.ID != "" {
		row.AcademicYear = Ref{ID: string(r.AcademicYear.ID), Name: r.AcademicYear.Name}
	} else {
		row.AcademicYear = Ref{ID: string(r.AcademicYearID)}
	}

	if r.Section != nil && r.Section.ID != "" {
		row.Section = &Ref{ID: string(r.Section.ID), Name: r.Section.Name}
	} else if r.SectionID != "" {
		row.Section = &Ref{ID: string(r.SectionID)}
	}

	if row.StudentID == "" || row.YearLevel.ID == "" || row.AcademicYear.ID == "" {
		return EnrollmentRow{}, ErrIncompleteEnrollment
	}
	return row, nil
}

func decodeYearLevel(raw json.RawMessage) (Ref, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Ref{}, nil
	}
	if raw[0] == '{' {
		var ref RawRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return Ref{}, fmt.Errorf("decode year_level: %w", err)
		}
		return Ref{ID: string(ref.ID), Name: ref.Name}, nil
	}
	var scalar FlexString
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return Ref{}, fmt.Errorf("decode year_level: %w", err)
	}
	if scalar == "" {
		return Ref{}, nil
	}
	return gradeRef(string(scalar)), nil
}

func gradeRef(grade string) Ref {
	name := grade
	if _, err := strconv.Atoi(grade); err == nil {
		name = "Grade " + grade
	}
	return Ref{ID: grade, Name: name}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
