package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/pkg/database"
)

const academicYearColumns = `id, name, start_date, end_date, is_active, created_at, updated_at`

// AcademicYearRepository persists academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// ListAll returns academic years, newest first.
func (r *AcademicYearRepository) ListAll(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, error) {
	var cond conditions
	if filter.IsActive != nil {
		cond.add("is_active = $%d", *filter.IsActive)
	}
	query := "SELECT " + academicYearColumns + " FROM academic_years" + cond.where() + " ORDER BY start_date DESC, id"
	years := make([]models.AcademicYear, 0)
	if err := r.db.SelectContext(ctx, &years, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID fetches one academic year.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years WHERE id = $1"
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find academic year: %w", err)
	}
	return &year, nil
}

// ExistsByName checks name uniqueness excluding an optional ID.
func (r *AcademicYearRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM academic_years WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check academic year name: %w", err)
	}
	return true, nil
}

// Create inserts an academic year. New years start inactive.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	year.IsActive = false
	const query = `INSERT INTO academic_years (id, name, start_date, end_date, is_active, created_at, updated_at)
        VALUES (:id, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies name and dates. Activation goes through SetActive.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// Delete removes an academic year.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "academic_years", id)
}

// SetActive makes id the only active academic year.
func (r *AcademicYearRepository) SetActive(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active AND id <> $2`, now, id); err != nil {
			return fmt.Errorf("deactivate academic years: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id)
		if err != nil {
			return fmt.Errorf("activate academic year: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
