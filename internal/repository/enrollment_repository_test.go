package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
)

var enrollmentRecordColumns = []string{"id", "student_id", "student_ref_id", "lrn", "first_name", "middle_name", "last_name",
	"year_level_id", "year_level_name", "grade_level", "academic_year_id", "academic_year_name", "section_id", "section_name", "status", "enrolled_at"}

func TestEnrollmentRepositoryListAllNormalizes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentRecordColumns).
		AddRow("e1", "s1", "s1", "100001", "Juan", "", "Dela Cruz", "g7", "Grade 7", nil, "ay1", "2024-2025", "sec-1", "Rizal", "enrolled", now).
		AddRow("e2", nil, "s2", "100002", "Ana", "", "Peña", nil, nil, 7, "ay1", "2024-2025", nil, nil, "ENROLLED", nil).
		AddRow("e3", "s3", "s3", "100003", "Leo", "", "Reyes", "g8", "Grade 8", nil, "ay1", "2024-2025", nil, nil, "ENROLLED", now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.academic_year_id = $1 AND e.status = $2 ORDER BY s.last_name, s.first_name, e.id")).
		WithArgs("ay1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)

	result, err := repo.ListAll(context.Background(), models.EnrollmentFilter{AcademicYearID: "ay1", Status: models.EnrollmentStatusEnrolled})
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, "s1", result[0].StudentID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, result[0].Status)
	require.NotNil(t, result[0].Section)
	assert.Equal(t, "Rizal", result[0].Section.Name)

	assert.Equal(t, "s2", result[1].StudentID)
	assert.Equal(t, models.Ref{ID: "7", Name: "Grade 7"}, result[1].YearLevel)
	assert.Nil(t, result[1].Section)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListAllYearLevelAfterNormalization(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentRecordColumns).
		AddRow("e1", "s1", "s1", "1", "A", "", "B", "g7", "Grade 7", nil, "ay1", "2024", nil, nil, "ENROLLED", nil).
		AddRow("e2", "s2", "s2", "2", "C", "", "D", "g8", "Grade 8", nil, "ay1", "2024", nil, nil, "ENROLLED", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e")).WillReturnRows(rows)

	result, err := repo.ListAll(context.Background(), models.EnrollmentFilter{YearLevelID: "g8"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "e2", result[0].ID)
}

func TestEnrollmentRepositoryBulkAssignSection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET section_id = $1, updated_at = $2")).
		WithArgs("sec-2", sqlmock.AnyArg(), "g7", "ay1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.BulkAssignSection(context.Background(), "g7", "ay1", "sec-2", []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryBulkAssignSectionEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	n, err := repo.BulkAssignSection(context.Background(), "g7", "ay1", "sec-2", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	batch := []models.Enrollment{
		{StudentID: "s1", YearLevelID: "g7", AcademicYearID: "ay1"},
		{StudentID: "s2", YearLevelID: "g7", AcademicYearID: "ay1"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), batch))
	assert.NotEmpty(t, batch[0].ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, batch[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsForYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 LIMIT 1")).
		WithArgs("s1", "ay1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForYear(context.Background(), "s1", "ay1", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
