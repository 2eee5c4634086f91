package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/pkg/database"
)

const enrollmentRecordSelect = `SELECT e.id, e.student_id, s.id AS student_ref_id, s.lrn, s.first_name, s.middle_name, s.last_name,
        e.year_level_id, yl.name AS year_level_name, e.grade_level,
        e.academic_year_id, ay.name AS academic_year_name,
        e.section_id, sec.name AS section_name, e.status, e.enrolled_at
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN year_levels yl ON yl.id = e.year_level_id
        LEFT JOIN academic_years ay ON ay.id = e.academic_year_id
        LEFT JOIN sections sec ON sec.id = e.section_id`

const insertEnrollment = `INSERT INTO enrollments (id, student_id, year_level_id, academic_year_id, section_id, status, enrolled_at, created_at, updated_at)
        VALUES (:id, :student_id, :year_level_id, :academic_year_id, :section_id, :status, :enrolled_at, :created_at, :updated_at)`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListAll returns normalized enrollment rows. Year level filtering happens
// after normalization because legacy rows only carry a grade number.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error) {
	var cond conditions
	cond.addIf(filter.AcademicYearID != "", "e.academic_year_id = $%d", filter.AcademicYearID)
	cond.addIf(filter.SectionID != "", "e.section_id = $%d", filter.SectionID)
	cond.addIf(filter.Status != "", "e.status = $%d", filter.Status)

	query := enrollmentRecordSelect + cond.where() + " ORDER BY s.last_name, s.first_name, e.id"
	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	rows := make([]models.EnrollmentRow, 0, len(records))
	for _, rec := range records {
		row := models.NormalizeRecord(rec)
		if filter.YearLevelID != "" && row.YearLevel.ID != filter.YearLevelID {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FindRow returns one normalized enrollment row.
func (r *EnrollmentRepository) FindRow(ctx context.Context, id string) (*models.EnrollmentRow, error) {
	var rec models.EnrollmentRecord
	if err := r.db.GetContext(ctx, &rec, enrollmentRecordSelect+" WHERE e.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment row: %w", err)
	}
	row := models.NormalizeRecord(rec)
	return &row, nil
}

// FindByID fetches the stored enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, year_level_id, academic_year_id, section_id, status, enrolled_at, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ExistsForYear reports whether the student already has an enrollment in the
// academic year, ignoring excludeID.
func (r *EnrollmentRepository) ExistsForYear(ctx context.Context, studentID, academicYearID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2"
	args := []interface{}{studentID, academicYearID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	prepareEnrollment(enrollment)
	if _, err := r.db.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// CreateBatch inserts enrollments in one transaction.
func (r *EnrollmentRepository) CreateBatch(ctx context.Context, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range enrollments {
			prepareEnrollment(&enrollments[i])
			if _, err := tx.NamedExecContext(ctx, insertEnrollment, &enrollments[i]); err != nil {
				return fmt.Errorf("import enrollment %d: %w", i, err)
			}
		}
		return nil
	})
}

// Update modifies an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET year_level_id = :year_level_id, academic_year_id = :academic_year_id, section_id = :section_id,
        status = :status, enrolled_at = :enrolled_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "enrollments", id)
}

// BulkAssignSection moves the cohort enrollments of the given students to a
// section and returns how many rows changed.
func (r *EnrollmentRepository) BulkAssignSection(ctx context.Context, yearLevelID, academicYearID, sectionID string, studentIDs []string) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	var affected int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE enrollments SET section_id = $1, updated_at = $2
            WHERE year_level_id = $3 AND academic_year_id = $4 AND student_id = ANY($5)`
		res, err := tx.ExecContext(ctx, query, sectionID, time.Now().UTC(), yearLevelID, academicYearID, pq.Array(studentIDs))
		if err != nil {
			return fmt.Errorf("bulk assign section: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("bulk assign section: %w", err)
		}
		return nil
	})
	return affected, err
}

func prepareEnrollment(enrollment *models.Enrollment) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
}
