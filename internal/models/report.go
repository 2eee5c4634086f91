package models

// ReportType enumerates the generated school forms.
type ReportType string

const (
	// ReportTypeSF5 is the per-learner report on promotion and level of proficiency.
	ReportTypeSF5 ReportType = "sf5"
	// ReportTypeSF6 is the per-year-level summarized report on promotion.
	ReportTypeSF6 ReportType = "sf6"
)

// Valid reports whether t is a supported report.
func (t ReportType) Valid() bool {
	return t == ReportTypeSF5 || t == ReportTypeSF6
}

// SF5Row is one learner line of a section's SF5.
type SF5Row struct {
	ID                 string   `db:"id" json:"id"`
	AcademicYearID     string   `db:"academic_year_id" json:"academic_year_id"`
	SectionID          string   `db:"section_id" json:"section_id"`
	SectionName        string   `db:"section_name" json:"section_name"`
	YearLevelName      string   `db:"year_level_name" json:"year_level_name"`
	StudentID          string   `db:"student_id" json:"student_id"`
	LRN                string   `db:"lrn" json:"lrn"`
	StudentName        string   `db:"student_name" json:"student_name"`
	Sex                string   `db:"sex" json:"sex"`
	GeneralAverage     *float64 `db:"general_average" json:"general_average,omitempty"`
	ActionTaken        string   `db:"action_taken" json:"action_taken"`
	IncompleteSubjects *string  `db:"incomplete_subjects" json:"incomplete_subjects,omitempty"`
}

// SearchFields is the projection searched by the SF5 view.
func (r SF5Row) SearchFields() []string {
	return []string{r.StudentName, r.LRN, r.SectionName, r.ActionTaken}
}

// SF6Row is one category line of the SF6 summary for a year level.
type SF6Row struct {
	ID             string `db:"id" json:"id"`
	AcademicYearID string `db:"academic_year_id" json:"academic_year_id"`
	YearLevelID    string `db:"year_level_id" json:"year_level_id"`
	YearLevelName  string `db:"year_level_name" json:"year_level_name"`
	Category       string `db:"category" json:"category"`
	MaleCount      int    `db:"male_count" json:"male_count"`
	FemaleCount    int    `db:"female_count" json:"female_count"`
	TotalCount     int    `db:"total_count" json:"total_count"`
}

// SearchFields is the projection searched by the SF6 view.
func (r SF6Row) SearchFields() []string {
	return []string{r.YearLevelName, r.Category}
}

// ReportFilter selects the rows of a generated report.
type ReportFilter struct {
	AcademicYearID string `json:"academic_year_id"`
	SectionID      string `json:"section_id,omitempty"`
	YearLevelID    string `json:"year_level_id,omitempty"`
	Search         string `json:"search,omitempty"`
	Page           int    `json:"-"`
	PageSize       int    `json:"-"`
}
