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
)

const yearLevelColumns = `id, name, code, sort_order, created_at, updated_at`

// YearLevelRepository persists year levels.
type YearLevelRepository struct {
	db *sqlx.DB
}

// NewYearLevelRepository constructs the repository.
func NewYearLevelRepository(db *sqlx.DB) *YearLevelRepository {
	return &YearLevelRepository{db: db}
}

// ListAll returns every year level ordered by sort_order.
func (r *YearLevelRepository) ListAll(ctx context.Context) ([]models.YearLevel, error) {
	query := "SELECT " + yearLevelColumns + " FROM year_levels ORDER BY sort_order, name"
	levels := make([]models.YearLevel, 0)
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list year levels: %w", err)
	}
	return levels, nil
}

// FindByID fetches one year level.
func (r *YearLevelRepository) FindByID(ctx context.Context, id string) (*models.YearLevel, error) {
	query := "SELECT " + yearLevelColumns + " FROM year_levels WHERE id = $1"
	var level models.YearLevel
	if err := r.db.GetContext(ctx, &level, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find year level: %w", err)
	}
	return &level, nil
}

// ExistsByCode checks code uniqueness excluding an optional ID.
func (r *YearLevelRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM year_levels WHERE UPPER(code) = UPPER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check year level code: %w", err)
	}
	return true, nil
}

// Create inserts a year level.
func (r *YearLevelRepository) Create(ctx context.Context, level *models.YearLevel) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	level.CreatedAt = now
	level.UpdatedAt = now
	const query = `INSERT INTO year_levels (id, name, code, sort_order, created_at, updated_at)
        VALUES (:id, :name, :code, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("create year level: %w", err)
	}
	return nil
}

// Update modifies a year level.
func (r *YearLevelRepository) Update(ctx context.Context, level *models.YearLevel) error {
	level.UpdatedAt = time.Now().UTC()
	const query = `UPDATE year_levels SET name = :name, code = :code, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("update year level: %w", err)
	}
	return nil
}

// Delete removes a year level.
func (r *YearLevelRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "year_levels", id)
}
