package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
)

func TestTeacherScheduleRepositoryHasOverlap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherScheduleRepository(db)

	slot := models.TeacherSchedule{ID: "slot-2", TeacherID: "t1", AcademicYearID: "ay1", DayOfWeek: "MONDAY", StartTime: "08:30", EndTime: "09:30"}
	mock.ExpectQuery(regexp.QuoteMeta("start_time < $4 AND end_time > $5 AND id <> $6")).
		WithArgs("t1", "ay1", "MONDAY", "09:30", "08:30", "slot-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_schedules")).
		WillReturnError(sql.ErrNoRows)

	overlap, err := repo.HasOverlap(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.HasOverlap(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}
