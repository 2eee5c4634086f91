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

const studentColumns = `id, lrn, first_name, middle_name, last_name, gender, birth_date, address, guardian_name, guardian_contact, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListAll returns every student matching the exact-match filters. Search and
// paging are applied by the caller on the full collection.
func (r *StudentRepository) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var cond conditions
	cond.addIf(filter.Gender != "", "gender = $%d", filter.Gender)

	query := "SELECT " + studentColumns + " FROM students" + cond.where() + " ORDER BY last_name, first_name, id"
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByLRN checks if a student with the given LRN exists optionally excluding an ID.
func (r *StudentRepository) ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE lrn = $1"
	args := []interface{}{lrn}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check lrn: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, lrn, first_name, middle_name, last_name, gender, birth_date, address, guardian_name, guardian_contact, created_at, updated_at)
        VALUES (:id, :lrn, :first_name, :middle_name, :last_name, :gender, :birth_date, :address, :guardian_name, :guardian_contact, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET lrn = :lrn, first_name = :first_name, middle_name = :middle_name, last_name = :last_name, gender = :gender,
        birth_date = :birth_date, address = :address, guardian_name = :guardian_name, guardian_contact = :guardian_contact, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student. Enrollments cascade in the schema.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "students", id)
}
