package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

type mockEnrollmentRepo struct {
	rows       []models.EnrollmentRow
	existing   map[string]bool
	created    []models.Enrollment
	batch      []models.Enrollment
	lastFilter models.EnrollmentFilter
	assigned   struct {
		yearLevelID, academicYearID, sectionID string
		studentIDs                             []string
	}
}

func (m *mockEnrollmentRepo) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error) {
	m.lastFilter = filter
	return m.rows, nil
}

func (m *mockEnrollmentRepo) FindRow(ctx context.Context, id string) (*models.EnrollmentRow, error) {
	for _, r := range m.rows {
		if r.ID == id {
			row := r
			return &row, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	row, err := m.FindRow(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Enrollment{ID: row.ID, StudentID: row.StudentID, YearLevelID: row.YearLevel.ID, AcademicYearID: row.AcademicYear.ID}, nil
}

func (m *mockEnrollmentRepo) ExistsForYear(ctx context.Context, studentID, academicYearID, excludeID string) (bool, error) {
	return m.existing[studentID+"|"+academicYearID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "new-enrollment"
	m.created = append(m.created, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) CreateBatch(ctx context.Context, enrollments []models.Enrollment) error {
	m.batch = append(m.batch, enrollments...)
	return nil
}

func (m *mockEnrollmentRepo) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if _, err := m.FindRow(ctx, id); err != nil {
		return err
	}
	return nil
}

func (m *mockEnrollmentRepo) BulkAssignSection(ctx context.Context, yearLevelID, academicYearID, sectionID string, studentIDs []string) (int64, error) {
	m.assigned.yearLevelID = yearLevelID
	m.assigned.academicYearID = academicYearID
	m.assigned.sectionID = sectionID
	m.assigned.studentIDs = studentIDs
	return int64(len(studentIDs)), nil
}

type stubStudents struct{ known map[string]bool }

func (s stubStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.known[id] {
		return &models.Student{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type stubYearLevels struct {
	levels []models.YearLevel
	err    error
}

func (s stubYearLevels) All(ctx context.Context) ([]models.YearLevel, error) {
	return s.levels, s.err
}

type stubAcademicYears struct{ years []models.AcademicYear }

func (s stubAcademicYears) All(ctx context.Context) ([]models.AcademicYear, error) {
	return s.years, nil
}

type stubSections struct {
	sections   []models.SectionDetail
	lastFilter models.SectionFilter
}

func (s *stubSections) All(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	s.lastFilter = filter
	return s.sections, nil
}

func (s *stubSections) Get(ctx context.Context, id string) (*models.Section, error) {
	for _, d := range s.sections {
		if d.ID == id {
			section := d.Section
			return &section, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

func enrollmentRow(id, studentID, name, yearLevel, academicYear string) models.EnrollmentRow {
	return models.EnrollmentRow{
		ID:           id,
		StudentID:    studentID,
		StudentName:  name,
		YearLevel:    models.Ref{ID: yearLevel, Name: "Grade " + yearLevel},
		AcademicYear: models.Ref{ID: academicYear, Name: "SY " + academicYear},
		Status:       models.EnrollmentStatusEnrolled,
	}
}

func sampleLevels() []models.YearLevel {
	return []models.YearLevel{
		{ID: "yl-7", Name: "Grade 7", Code: "G7"},
		{ID: "yl-8", Name: "Grade 8", Code: "G8"},
	}
}

func newEnrollmentService(repo *mockEnrollmentRepo, sections *stubSections) *EnrollmentService {
	if sections == nil {
		sections = &stubSections{}
	}
	return NewEnrollmentService(
		repo,
		stubStudents{known: map[string]bool{"stu-1": true, "stu-2": true, "stu-3": true, "stu-4": true, "42": true}},
		stubYearLevels{levels: sampleLevels()},
		sections,
		stubAcademicYears{years: []models.AcademicYear{{ID: "ay-1", Name: "2024-2025"}}},
		nil,
		ListSettings{DefaultPageSize: 2, MaxPageSize: 50},
		nil,
		nil,
	)
}

func TestEnrollmentServiceListAppliesFiltersAndSearch(t *testing.T) {
	repo := &mockEnrollmentRepo{rows: []models.EnrollmentRow{
		enrollmentRow("e1", "stu-1", "Santos, Ana", "yl-7", "ay-1"),
		enrollmentRow("e2", "stu-2", "Reyes, Maria", "yl-8", "ay-1"),
		enrollmentRow("e3", "stu-3", "Santos, Leo", "yl-7", "ay-1"),
		enrollmentRow("e4", "stu-4", "Cruz, Jose", "yl-7", "ay-1"),
	}}
	svc := newEnrollmentService(repo, nil)

	page, err := svc.List(context.Background(), models.EnrollmentFilter{AcademicYearID: "ay-1", YearLevelID: "yl-7", Search: "santos"})
	require.NoError(t, err)
	assert.Equal(t, "ay-1", repo.lastFilter.AcademicYearID)
	assert.Empty(t, repo.lastFilter.YearLevelID)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "e1", page.Items[0].ID)
	assert.Equal(t, "e3", page.Items[1].ID)

	page, err = svc.List(context.Background(), models.EnrollmentFilter{YearLevelID: "yl-7", Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e4", page.Items[0].ID)
}

func TestEnrollmentServiceCreate(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: map[string]bool{"stu-2|ay-1": true}}
	svc := newEnrollmentService(repo, nil)
	ctx := context.Background()

	enrollment, err := svc.Create(ctx, EnrollmentRequest{StudentID: "stu-1", YearLevelID: "yl-7", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.Len(t, repo.created, 1)

	_, err = svc.Create(ctx, EnrollmentRequest{StudentID: "stu-2", YearLevelID: "yl-7", AcademicYearID: "ay-1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, EnrollmentRequest{StudentID: "ghost", YearLevelID: "yl-7", AcademicYearID: "ay-1"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(ctx, EnrollmentRequest{StudentID: "stu-1", YearLevelID: "yl-7", AcademicYearID: "ay-1", Status: "GRADUATED"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestEnrollmentServiceImportNormalizesLegacyShapes(t *testing.T) {
	raw := `[
		{"student_id": "stu-1", "year_level": {"id": "yl-7", "name": "Grade 7"}, "academic_year": {"id": "ay-1"}},
		{"student": {"id": 42}, "grade_level": 8, "academic_year_id": "ay-1", "section": {"id": "sec-8a"}},
		{"student_id": "stu-2", "year_level": "G7", "academic_year_id": "ay-1"},
		{"student_id": "stu-3", "year_level": "Grade 12", "academic_year_id": "ay-1"},
		{"student_id": "stu-4", "academic_year_id": "ay-1"},
		{"student_id": "stu-1", "year_level_id": "yl-7", "academic_year_id": "ay-1"},
		{"student_id": "stu-5", "year_level_id": "yl-7", "academic_year_id": "ay-1"},
		{"student_id": "ghost", "year_level_id": "yl-7", "academic_year_id": "ay-1"}
	]`
	var payloads []models.RawEnrollment
	require.NoError(t, json.Unmarshal([]byte(raw), &payloads))

	repo := &mockEnrollmentRepo{existing: map[string]bool{"stu-5|ay-1": true}}
	svc := newEnrollmentService(repo, nil)

	result, err := svc.Import(context.Background(), payloads)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 5, result.Skipped)

	require.Len(t, repo.batch, 3)
	assert.Equal(t, "yl-7", repo.batch[0].YearLevelID)
	assert.Equal(t, "42", repo.batch[1].StudentID)
	assert.Equal(t, "yl-8", repo.batch[1].YearLevelID)
	require.NotNil(t, repo.batch[1].SectionID)
	assert.Equal(t, "sec-8a", *repo.batch[1].SectionID)
	assert.Equal(t, "yl-7", repo.batch[2].YearLevelID)
}

func TestEnrollmentServiceOptions(t *testing.T) {
	sections := &stubSections{sections: []models.SectionDetail{{Section: models.Section{ID: "sec-1", Name: "Rizal"}}}}
	svc := newEnrollmentService(&mockEnrollmentRepo{}, sections)

	opts, err := svc.Options(context.Background(), "ay-1")
	require.NoError(t, err)
	assert.Len(t, opts.YearLevels, 2)
	assert.Len(t, opts.Sections, 1)
	assert.Len(t, opts.AcademicYears, 1)
	assert.Equal(t, "ay-1", sections.lastFilter.AcademicYearID)
}

func TestEnrollmentServiceOptionsPropagatesErrors(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, stubStudents{}, stubYearLevels{err: appErrors.Internal(errors.New("boom"), "failed to list year levels")}, &stubSections{}, stubAcademicYears{}, nil, DefaultListSettings(), nil, nil)

	_, err := svc.Options(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestEnrollmentServiceGetNotFound(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
