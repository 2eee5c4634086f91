package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type calendarRepository interface {
	ListAll(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEventDetail, error)
	FindByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id string) error
}

// CalendarEventRequest is the payload for creating or updating an event.
type CalendarEventRequest struct {
	AcademicYearID string                   `json:"academic_year_id" validate:"required"`
	Title          string                   `json:"title" validate:"required,max=150"`
	Description    string                   `json:"description"`
	EventType      models.CalendarEventType `json:"event_type" validate:"required"`
	StartDate      time.Time                `json:"start_date" validate:"required"`
	EndDate        time.Time                `json:"end_date" validate:"required,gtefield=StartDate"`
}

// CalendarService manages the academic calendar.
type CalendarService struct {
	repo      calendarRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// List returns one page of calendar events.
func (s *CalendarService) List(ctx context.Context, filter models.CalendarFilter) (listview.Page[models.CalendarEventDetail], error) {
	key := cacheKey(cacheCalendar, map[string]string{"academic_year": filter.AcademicYearID, "type": string(filter.EventType)})
	events, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.CalendarEventDetail, error) {
		return s.repo.ListAll(ctx, filter)
	})
	if err != nil {
		return listview.Page[models.CalendarEventDetail]{}, appErrors.Internal(err, "failed to list calendar events")
	}
	return listview.Apply(events, s.list.Query(filter.Search, filter.Page, filter.PageSize), func(e models.CalendarEventDetail) []string {
		return []string{e.Title, string(e.EventType), e.Description}
	}), nil
}

// Create adds an event.
func (s *CalendarService) Create(ctx context.Context, req CalendarEventRequest) (*models.CalendarEvent, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	event := &models.CalendarEvent{}
	applyCalendarRequest(event, req)
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to create calendar event")
	}
	s.cache.Invalidate(ctx, cacheCalendar)
	return event, nil
}

// Update modifies an event.
func (s *CalendarService) Update(ctx context.Context, id string, req CalendarEventRequest) (*models.CalendarEvent, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return nil, appErrors.Internal(err, "failed to load calendar event")
	}
	applyCalendarRequest(event, req)
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to update calendar event")
	}
	s.cache.Invalidate(ctx, cacheCalendar)
	return event, nil
}

// Delete removes an event.
func (s *CalendarService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return appErrors.Internal(err, "failed to delete calendar event")
	}
	s.cache.Invalidate(ctx, cacheCalendar)
	return nil
}

func (s *CalendarService) validate(req CalendarEventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid calendar event payload")
	}
	if !req.EventType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}
	return nil
}

func applyCalendarRequest(event *models.CalendarEvent, req CalendarEventRequest) {
	event.AcademicYearID = req.AcademicYearID
	event.Title = req.Title
	event.Description = req.Description
	event.EventType = req.EventType
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
}
