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

func TestExportJobListFinishedBeforeSkipsFailedIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	finished := cutoff.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "type", "params", "status", "progress", "file_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-2", "sf6", []byte(`{"academic_year_id":"ay-1"}`), "FINISHED", 100, "sf6/job-2.csv", "u-1", finished, finished, nil)
	mock.ExpectQuery(regexp.QuoteMeta("AND id::text <> ALL($2)")).
		WithArgs(cutoff, sqlmock.AnyArg(), 100).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, []string{"job-1"}, 100)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, models.ExportStatusFinished, jobs[0].Status)
	require.NotNil(t, jobs[0].FilePath)
	assert.Equal(t, "sf6/job-2.csv", *jobs[0].FilePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}
