// Package selection keeps the enrollment multi-select scoped to a single
// cohort (year level + academic year). Every function returns a new slice
// and leaves its inputs untouched; members are unique by student id.
package selection

import "github.com/noah-isme/sis-admin/internal/models"

// CohortKey identifies the year level and academic year a selection is bound to.
type CohortKey struct {
	YearLevelID    string `json:"year_level_id"`
	AcademicYearID string `json:"academic_year_id"`
}

// KeyOf returns the cohort of a row.
func KeyOf(row models.EnrollmentRow) CohortKey {
	return CohortKey{YearLevelID: row.YearLevel.ID, AcademicYearID: row.AcademicYear.ID}
}

// State describes whether a set is bound to a cohort yet.
type State struct {
	Constrained bool       `json:"constrained"`
	Key         *CohortKey `json:"cohort,omitempty"`
}

// StateOf reports the constraint a set currently imposes.
func StateOf(set []models.EnrollmentRow) State {
	if len(set) == 0 {
		return State{}
	}
	key := KeyOf(set[0])
	return State{Constrained: true, Key: &key}
}

// CanSelect reports whether row may join set.
func CanSelect(row models.EnrollmentRow, set []models.EnrollmentRow) bool {
	return len(set) == 0 || KeyOf(row) == KeyOf(set[0])
}

// Contains reports whether the student behind row is already selected.
func Contains(set []models.EnrollmentRow, studentID string) bool {
	for _, member := range set {
		if member.StudentID == studentID {
			return true
		}
	}
	return false
}

// Project keeps the identity and display fields of a row.
func Project(row models.EnrollmentRow) models.EnrollmentRow {
	out := models.EnrollmentRow{
		ID:           row.ID,
		StudentID:    row.StudentID,
		StudentName:  row.StudentName,
		LRN:          row.LRN,
		YearLevel:    row.YearLevel,
		AcademicYear: row.AcademicYear,
		Status:       row.Status,
	}
	if row.Section != nil {
		section := *row.Section
		out.Section = &section
	}
	return out
}

// Toggle removes the row's student when selected, otherwise adds it when the
// cohort allows. An incompatible row leaves the set unchanged.
func Toggle(row models.EnrollmentRow, set []models.EnrollmentRow) []models.EnrollmentRow {
	if Contains(set, row.StudentID) {
		out := make([]models.EnrollmentRow, 0, len(set)-1)
		for _, member := range set {
			if member.StudentID != row.StudentID {
				out = append(out, member)
			}
		}
		return out
	}
	if !CanSelect(row, set) {
		return set
	}
	out := make([]models.EnrollmentRow, 0, len(set)+1)
	out = append(out, set...)
	return append(out, Project(row))
}

// SelectAllMatching adds every visible row of the set's cohort, or of the
// first visible row's cohort when the set is empty.
func SelectAllMatching(visible, set []models.EnrollmentRow) []models.EnrollmentRow {
	if len(set) == 0 && len(visible) == 0 {
		return []models.EnrollmentRow{}
	}
	var key CohortKey
	if len(set) > 0 {
		key = KeyOf(set[0])
	} else {
		key = KeyOf(visible[0])
	}

	seen := make(map[string]struct{}, len(set)+len(visible))
	out := make([]models.EnrollmentRow, 0, len(set)+len(visible))
	for _, member := range set {
		seen[member.StudentID] = struct{}{}
		out = append(out, member)
	}
	for _, row := range visible {
		if KeyOf(row) != key {
			continue
		}
		if _, dup := seen[row.StudentID]; dup {
			continue
		}
		seen[row.StudentID] = struct{}{}
		out = append(out, Project(row))
	}
	return out
}

// DeselectAllVisible drops every member whose student appears in visible.
func DeselectAllVisible(visible, set []models.EnrollmentRow) []models.EnrollmentRow {
	visibleIDs := make(map[string]struct{}, len(visible))
	for _, row := range visible {
		visibleIDs[row.StudentID] = struct{}{}
	}
	out := make([]models.EnrollmentRow, 0, len(set))
	for _, member := range set {
		if _, hidden := visibleIDs[member.StudentID]; !hidden {
			out = append(out, member)
		}
	}
	return out
}

// Clear returns the empty, unconstrained set.
func Clear() []models.EnrollmentRow {
	return []models.EnrollmentRow{}
}

// StudentIDs lists the members' identity keys in display order.
func StudentIDs(set []models.EnrollmentRow) []string {
	ids := make([]string, len(set))
	for i, member := range set {
		ids[i] = member.StudentID
	}
	return ids
}
