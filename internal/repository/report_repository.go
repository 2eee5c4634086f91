package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-admin/internal/models"
)

// ReportRepository reads the generated SF5/SF6 report views. Rows are
// computed in the database; this layer only selects them.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ListSF5 returns the learner lines of the SF5 for the filter.
func (r *ReportRepository) ListSF5(ctx context.Context, filter models.ReportFilter) ([]models.SF5Row, error) {
	var cond conditions
	cond.add("academic_year_id = $%d", filter.AcademicYearID)
	cond.addIf(filter.SectionID != "", "section_id = $%d", filter.SectionID)
	cond.addIf(filter.YearLevelID != "", "year_level_id = $%d", filter.YearLevelID)

	query := `SELECT id, academic_year_id, section_id, section_name, year_level_name, student_id, lrn, student_name, sex,
        general_average, action_taken, incomplete_subjects FROM sf5_report_rows` + cond.where() + " ORDER BY section_name, sex DESC, student_name"
	rows := make([]models.SF5Row, 0)
	if err := r.db.SelectContext(ctx, &rows, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list sf5 rows: %w", err)
	}
	return rows, nil
}

// ListSF6 returns the summary lines of the SF6 for the filter.
func (r *ReportRepository) ListSF6(ctx context.Context, filter models.ReportFilter) ([]models.SF6Row, error) {
	var cond conditions
	cond.add("academic_year_id = $%d", filter.AcademicYearID)
	cond.addIf(filter.YearLevelID != "", "year_level_id = $%d", filter.YearLevelID)

	query := `SELECT id, academic_year_id, year_level_id, year_level_name, category, male_count, female_count, total_count
        FROM sf6_report_rows` + cond.where() + " ORDER BY year_level_sort, category_sort"
	rows := make([]models.SF6Row, 0)
	if err := r.db.SelectContext(ctx, &rows, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list sf6 rows: %w", err)
	}
	return rows, nil
}
