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

// TeacherScheduleRepository persists weekly teaching slots.
type TeacherScheduleRepository struct {
	db *sqlx.DB
}

// NewTeacherScheduleRepository constructs the repository.
func NewTeacherScheduleRepository(db *sqlx.DB) *TeacherScheduleRepository {
	return &TeacherScheduleRepository{db: db}
}

// ListAll returns slots ordered by weekday and start time.
func (r *TeacherScheduleRepository) ListAll(ctx context.Context, filter models.TeacherScheduleFilter) ([]models.TeacherScheduleDetail, error) {
	var cond conditions
	cond.addIf(filter.TeacherID != "", "ts.teacher_id = $%d", filter.TeacherID)
	cond.addIf(filter.SectionID != "", "ts.section_id = $%d", filter.SectionID)
	cond.addIf(filter.AcademicYearID != "", "ts.academic_year_id = $%d", filter.AcademicYearID)

	query := `SELECT ts.id, ts.teacher_id, ts.section_id, ts.academic_year_id, ts.subject, ts.day_of_week, ts.start_time, ts.end_time, ts.room, ts.created_at, ts.updated_at,
        CONCAT_WS(', ', t.last_name, t.first_name) AS teacher_name, s.name AS section_name, yl.name AS year_level_name
        FROM teacher_schedules ts
        JOIN teachers t ON t.id = ts.teacher_id
        JOIN sections s ON s.id = ts.section_id
        JOIN year_levels yl ON yl.id = s.year_level_id` + cond.where() + `
        ORDER BY ARRAY_POSITION(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY']::text[], ts.day_of_week::text), ts.start_time, ts.id`
	schedules := make([]models.TeacherScheduleDetail, 0)
	if err := r.db.SelectContext(ctx, &schedules, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list teacher schedules: %w", err)
	}
	return schedules, nil
}

// FindByID fetches one slot.
func (r *TeacherScheduleRepository) FindByID(ctx context.Context, id string) (*models.TeacherSchedule, error) {
	const query = `SELECT id, teacher_id, section_id, academic_year_id, subject, day_of_week, start_time, end_time, room, created_at, updated_at FROM teacher_schedules WHERE id = $1`
	var schedule models.TeacherSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher schedule: %w", err)
	}
	return &schedule, nil
}

// HasOverlap reports whether the teacher already teaches during the slot on
// the same day of the same academic year. Times compare as HH:MM strings.
func (r *TeacherScheduleRepository) HasOverlap(ctx context.Context, s models.TeacherSchedule) (bool, error) {
	const query = `SELECT 1 FROM teacher_schedules
        WHERE teacher_id = $1 AND academic_year_id = $2 AND day_of_week = $3 AND start_time < $4 AND end_time > $5 AND id <> $6 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, s.TeacherID, s.AcademicYearID, s.DayOfWeek, s.EndTime, s.StartTime, s.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check schedule overlap: %w", err)
	}
	return true, nil
}

// Create inserts a slot.
func (r *TeacherScheduleRepository) Create(ctx context.Context, schedule *models.TeacherSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO teacher_schedules (id, teacher_id, section_id, academic_year_id, subject, day_of_week, start_time, end_time, room, created_at, updated_at)
        VALUES (:id, :teacher_id, :section_id, :academic_year_id, :subject, :day_of_week, :start_time, :end_time, :room, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create teacher schedule: %w", err)
	}
	return nil
}

// Update modifies a slot.
func (r *TeacherScheduleRepository) Update(ctx context.Context, schedule *models.TeacherSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_schedules SET teacher_id = :teacher_id, section_id = :section_id, academic_year_id = :academic_year_id, subject = :subject,
        day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room = :room, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update teacher schedule: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *TeacherScheduleRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "teacher_schedules", id)
}
