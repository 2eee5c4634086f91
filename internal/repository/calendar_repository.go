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

// CalendarRepository persists academic calendar events.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs the repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListAll returns events in chronological order.
func (r *CalendarRepository) ListAll(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEventDetail, error) {
	var cond conditions
	cond.addIf(filter.AcademicYearID != "", "e.academic_year_id = $%d", filter.AcademicYearID)
	cond.addIf(filter.EventType != "", "e.event_type = $%d", filter.EventType)

	query := `SELECT e.id, e.academic_year_id, e.title, e.description, e.event_type, e.start_date, e.end_date, e.created_at, e.updated_at,
        ay.name AS academic_year_name
        FROM calendar_events e
        JOIN academic_years ay ON ay.id = e.academic_year_id` + cond.where() + " ORDER BY e.start_date, e.title"
	events := make([]models.CalendarEventDetail, 0)
	if err := r.db.SelectContext(ctx, &events, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// FindByID fetches one event.
func (r *CalendarRepository) FindByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	const query = `SELECT id, academic_year_id, title, description, event_type, start_date, end_date, created_at, updated_at FROM calendar_events WHERE id = $1`
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find calendar event: %w", err)
	}
	return &event, nil
}

// Create inserts an event.
func (r *CalendarRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO calendar_events (id, academic_year_id, title, description, event_type, start_date, end_date, created_at, updated_at)
        VALUES (:id, :academic_year_id, :title, :description, :event_type, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// Update modifies an event.
func (r *CalendarRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET academic_year_id = :academic_year_id, title = :title, description = :description, event_type = :event_type,
        start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "calendar_events", id)
}
