package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sis-admin/internal/models"
)

const exportJobColumns = `id, type, params, status, progress, file_path, created_by, created_at, finished_at, error_message`

// ExportJobRepository persists report export job metadata.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, type, params, status, progress, file_path, created_by, created_at, finished_at, error_message)
        VALUES (:id, :type, :params, :status, :progress, :file_path, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns a job by its identifier.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := "SELECT " + exportJobColumns + " FROM export_jobs WHERE id = $1"
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find export job: %w", err)
	}
	return &job, nil
}

// ExportJobUpdate lists the mutable fields; nil fields are left untouched.
type ExportJobUpdate struct {
	Status       *models.ExportStatus
	Progress     *int
	FilePath     *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params ExportJobUpdate) error {
	var set conditions
	if params.Status != nil {
		set.add("status = $%d", *params.Status)
	}
	if params.Progress != nil {
		set.add("progress = $%d", *params.Progress)
	}
	if params.FilePath != nil {
		set.add("file_path = $%d", *params.FilePath)
	}
	if params.ErrorMessage != nil {
		set.add("error_message = $%d", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set.add("finished_at = $%d", *params.FinishedAt)
	}
	if len(set.clauses) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set.clauses, ", "), len(set.args)+1)
	if _, err := r.db.ExecContext(ctx, query, append(set.args, id)...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListFinishedBefore retrieves finished jobs that still reference a file,
// leaving out the ids in skip.
func (r *ExportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, skip []string, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip == nil {
		skip = []string{}
	}
	query := "SELECT " + exportJobColumns + ` FROM export_jobs
        WHERE status = 'FINISHED' AND file_path IS NOT NULL AND finished_at < $1 AND id::text <> ALL($2)
        ORDER BY finished_at ASC LIMIT $3`
	jobs := make([]models.ExportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, pq.Array(skip), limit); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}

// ClearFile detaches the file from a job after it has been purged.
func (r *ExportJobRepository) ClearFile(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE export_jobs SET file_path = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("clear export file: %w", err)
	}
	return nil
}
