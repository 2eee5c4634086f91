package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
)

func TestSectionRepositoryListAllFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "year_level_id", "academic_year_id", "adviser_id", "capacity", "created_at", "updated_at", "year_level_name", "academic_year_name", "adviser_name"}).
		AddRow("sec-1", "Rizal", "g7", "ay1", "t1", 40, now, now, "Grade 7", "2024-2025", "Santos, Liza").
		AddRow("sec-2", "Bonifacio", "g7", "ay1", nil, 40, now, now, "Grade 7", "2024-2025", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.year_level_id = $1 AND s.academic_year_id = $2 ORDER BY yl.sort_order, s.name, s.id")).
		WithArgs("g7", "ay1").
		WillReturnRows(rows)

	sections, err := repo.ListAll(context.Background(), models.SectionFilter{YearLevelID: "g7", AcademicYearID: "ay1"})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.NotNil(t, sections[0].AdviserName)
	assert.Equal(t, "Santos, Liza", *sections[0].AdviserName)
	assert.Nil(t, sections[1].AdviserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindAdvisedSection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sections WHERE adviser_id = $1 AND academic_year_id = $2 AND id <> $3 LIMIT 1")).
		WithArgs("t1", "ay1", "sec-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sections WHERE adviser_id = $1")).
		WithArgs("t2", "ay1", "sec-2").
		WillReturnError(sql.ErrNoRows)

	id, err := repo.FindAdvisedSection(context.Background(), "t1", "ay1", "sec-2")
	require.NoError(t, err)
	assert.Equal(t, "sec-1", id)

	id, err = repo.FindAdvisedSection(context.Background(), "t2", "ay1", "sec-2")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositorySetAdviser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	adviser := "t1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET adviser_id = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(adviser, sqlmock.AnyArg(), "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET adviser_id = $1")).
		WithArgs(nil, sqlmock.AnyArg(), "sec-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetAdviser(context.Background(), "sec-1", &adviser))
	assert.ErrorIs(t, repo.SetAdviser(context.Background(), "sec-x", nil), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
