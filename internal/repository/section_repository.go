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

const sectionDetailSelect = `SELECT s.id, s.name, s.year_level_id, s.academic_year_id, s.adviser_id, s.capacity, s.created_at, s.updated_at,
        yl.name AS year_level_name, ay.name AS academic_year_name,
        CASE WHEN t.id IS NULL THEN NULL ELSE CONCAT_WS(', ', t.last_name, NULLIF(CONCAT_WS(' ', t.first_name, NULLIF(t.middle_name, '')), '')) END AS adviser_name
        FROM sections s
        JOIN year_levels yl ON yl.id = s.year_level_id
        JOIN academic_years ay ON ay.id = s.academic_year_id
        LEFT JOIN teachers t ON t.id = s.adviser_id`

// SectionRepository persists sections and their advisers.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListAll returns sections with display names.
func (r *SectionRepository) ListAll(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	var cond conditions
	cond.addIf(filter.YearLevelID != "", "s.year_level_id = $%d", filter.YearLevelID)
	cond.addIf(filter.AcademicYearID != "", "s.academic_year_id = $%d", filter.AcademicYearID)

	query := sectionDetailSelect + cond.where() + " ORDER BY yl.sort_order, s.name, s.id"
	sections := make([]models.SectionDetail, 0)
	if err := r.db.SelectContext(ctx, &sections, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID fetches one section.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, name, year_level_id, academic_year_id, adviser_id, capacity, created_at, updated_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// Exists checks (name, year level, academic year) uniqueness.
func (r *SectionRepository) Exists(ctx context.Context, name, yearLevelID, academicYearID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sections WHERE LOWER(name) = LOWER($1) AND year_level_id = $2 AND academic_year_id = $3"
	args := []interface{}{name, yearLevelID, academicYearID}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check section: %w", err)
	}
	return true, nil
}

// Create inserts a section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, name, year_level_id, academic_year_id, adviser_id, capacity, created_at, updated_at)
        VALUES (:id, :name, :year_level_id, :academic_year_id, :adviser_id, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section. The adviser is changed through SetAdviser.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, year_level_id = :year_level_id, academic_year_id = :academic_year_id, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "sections", id)
}

// SetAdviser assigns or clears (nil) the adviser of a section.
func (r *SectionRepository) SetAdviser(ctx context.Context, sectionID string, adviserID *string) error {
	const query = `UPDATE sections SET adviser_id = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, adviserID, time.Now().UTC(), sectionID)
	if err != nil {
		return fmt.Errorf("set section adviser: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindAdvisedSection returns the section a teacher advises in an academic
// year, excluding excludeSectionID. An empty result means none.
func (r *SectionRepository) FindAdvisedSection(ctx context.Context, teacherID, academicYearID, excludeSectionID string) (string, error) {
	const query = `SELECT id FROM sections WHERE adviser_id = $1 AND academic_year_id = $2 AND id <> $3 LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, teacherID, academicYearID, excludeSectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find advised section: %w", err)
	}
	return id, nil
}

// ListAdvisories returns every section of an academic year with its adviser.
func (r *SectionRepository) ListAdvisories(ctx context.Context, academicYearID string) ([]models.Advisory, error) {
	var cond conditions
	cond.addIf(academicYearID != "", "s.academic_year_id = $%d", academicYearID)
	query := `SELECT s.id AS section_id, s.name AS section_name, s.academic_year_id, ay.name AS academic_year_name, yl.name AS year_level_name,
        s.adviser_id, CASE WHEN t.id IS NULL THEN NULL ELSE CONCAT_WS(', ', t.last_name, t.first_name) END AS adviser_name
        FROM sections s
        JOIN year_levels yl ON yl.id = s.year_level_id
        JOIN academic_years ay ON ay.id = s.academic_year_id
        LEFT JOIN teachers t ON t.id = s.adviser_id` + cond.where() + " ORDER BY yl.sort_order, s.name"
	advisories := make([]models.Advisory, 0)
	if err := r.db.SelectContext(ctx, &advisories, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list advisories: %w", err)
	}
	return advisories, nil
}
