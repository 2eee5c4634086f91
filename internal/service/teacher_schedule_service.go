package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type teacherScheduleRepository interface {
	ListAll(ctx context.Context, filter models.TeacherScheduleFilter) ([]models.TeacherScheduleDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherSchedule, error)
	HasOverlap(ctx context.Context, schedule models.TeacherSchedule) (bool, error)
	Create(ctx context.Context, schedule *models.TeacherSchedule) error
	Update(ctx context.Context, schedule *models.TeacherSchedule) error
	Delete(ctx context.Context, id string) error
}

type advisoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	SetAdviser(ctx context.Context, sectionID string, adviserID *string) error
	FindAdvisedSection(ctx context.Context, teacherID, academicYearID, excludeSectionID string) (string, error)
	ListAdvisories(ctx context.Context, academicYearID string) ([]models.Advisory, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// TeacherScheduleRequest is the payload for creating or updating a teaching slot.
type TeacherScheduleRequest struct {
	TeacherID      string  `json:"teacher_id" validate:"required"`
	SectionID      string  `json:"section_id" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	Subject        string  `json:"subject" validate:"required,max=100"`
	DayOfWeek      string  `json:"day_of_week" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
	Room           *string `json:"room"`
}

// AssignAdviserRequest sets or clears (null teacher_id) a section adviser.
type AssignAdviserRequest struct {
	TeacherID *string `json:"teacher_id"`
}

// AdvisoryFilter narrows down the advisory table.
type AdvisoryFilter struct {
	AcademicYearID string
	Search         string
	Page           int
	PageSize       int
}

func scheduleSearchFields(s models.TeacherScheduleDetail) []string {
	return []string{s.TeacherName, s.Subject, s.SectionName, s.YearLevelName, s.DayOfWeek}
}

func advisorySearchFields(a models.Advisory) []string {
	fields := []string{a.SectionName, a.YearLevelName, a.AcademicYearName}
	if a.AdviserName != nil {
		fields = append(fields, *a.AdviserName)
	}
	return fields
}

// TeacherScheduleService manages teaching slots and section advisers.
type TeacherScheduleService struct {
	repo      teacherScheduleRepository
	sections  advisoryRepository
	teachers  teacherLookup
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherScheduleService constructs the service.
func NewTeacherScheduleService(repo teacherScheduleRepository, sections advisoryRepository, teachers teacherLookup, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *TeacherScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherScheduleService{repo: repo, sections: sections, teachers: teachers, cache: cache, list: list, validator: validate, logger: logger}
}

// List returns one page of teaching slots.
func (s *TeacherScheduleService) List(ctx context.Context, filter models.TeacherScheduleFilter) (listview.Page[models.TeacherScheduleDetail], error) {
	key := cacheKey(cacheSchedules, map[string]string{"teacher": filter.TeacherID, "section": filter.SectionID, "academic_year": filter.AcademicYearID})
	schedules, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.TeacherScheduleDetail, error) {
		return s.repo.ListAll(ctx, filter)
	})
	if err != nil {
		return listview.Page[models.TeacherScheduleDetail]{}, appErrors.Internal(err, "failed to list teacher schedules")
	}
	return listview.Apply(schedules, s.list.Query(filter.Search, filter.Page, filter.PageSize), scheduleSearchFields), nil
}

// Create adds a teaching slot after checking for clashes.
func (s *TeacherScheduleService) Create(ctx context.Context, req TeacherScheduleRequest) (*models.TeacherSchedule, error) {
	schedule := &models.TeacherSchedule{}
	if err := s.prepare(ctx, schedule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher schedule")
	}
	s.cache.Invalidate(ctx, cacheSchedules)
	return schedule, nil
}

// Update modifies a teaching slot.
func (s *TeacherScheduleService) Update(ctx context.Context, id string, req TeacherScheduleRequest) (*models.TeacherSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher schedule")
	}
	if err := s.prepare(ctx, schedule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher schedule")
	}
	s.cache.Invalidate(ctx, cacheSchedules)
	return schedule, nil
}

// Delete removes a teaching slot.
func (s *TeacherScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher schedule not found")
		}
		return appErrors.Internal(err, "failed to delete teacher schedule")
	}
	s.cache.Invalidate(ctx, cacheSchedules)
	return nil
}

// ListAdvisories returns one page of sections with their advisers.
func (s *TeacherScheduleService) ListAdvisories(ctx context.Context, filter AdvisoryFilter) (listview.Page[models.Advisory], error) {
	advisories, err := s.sections.ListAdvisories(ctx, filter.AcademicYearID)
	if err != nil {
		return listview.Page[models.Advisory]{}, appErrors.Internal(err, "failed to list advisories")
	}
	return listview.Apply(advisories, s.list.Query(filter.Search, filter.Page, filter.PageSize), advisorySearchFields), nil
}

// AssignAdviser sets the adviser of a section. A teacher advises at most one
// section per academic year; a nil teacher clears the adviser.
func (s *TeacherScheduleService) AssignAdviser(ctx context.Context, sectionID string, req AssignAdviserRequest) (*models.Section, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Internal(err, "failed to load section")
	}

	var adviserID *string
	if req.TeacherID != nil && strings.TrimSpace(*req.TeacherID) != "" {
		id := strings.TrimSpace(*req.TeacherID)
		if _, err := s.teachers.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Internal(err, "failed to load teacher")
		}
		other, err := s.sections.FindAdvisedSection(ctx, id, section.AcademicYearID, section.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check advisory")
		}
		if other != "" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already advises another section this academic year")
		}
		adviserID = &id
	}

	if err := s.sections.SetAdviser(ctx, section.ID, adviserID); err != nil {
		return nil, appErrors.Internal(err, "failed to assign adviser")
	}
	section.AdviserID = adviserID
	s.cache.Invalidate(ctx, cacheSections)
	return section, nil
}

func (s *TeacherScheduleService) prepare(ctx context.Context, schedule *models.TeacherSchedule, req TeacherScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid teacher schedule payload")
	}
	day := strings.ToUpper(strings.TrimSpace(req.DayOfWeek))
	if !validDay(day) {
		return appErrors.Clone(appErrors.ErrValidation, "day_of_week must be MONDAY to SATURDAY")
	}
	start, err := clock(req.StartTime)
	if err != nil {
		return appErrors.Invalid(err, "invalid start_time")
	}
	end, err := clock(req.EndTime)
	if err != nil {
		return appErrors.Invalid(err, "invalid end_time")
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	schedule.TeacherID = req.TeacherID
	schedule.SectionID = req.SectionID
	schedule.AcademicYearID = req.AcademicYearID
	schedule.Subject = req.Subject
	schedule.DayOfWeek = day
	schedule.StartTime = start
	schedule.EndTime = end
	schedule.Room = req.Room

	overlap, err := s.repo.HasOverlap(ctx, *schedule)
	if err != nil {
		return appErrors.Internal(err, "failed to check schedule overlap")
	}
	if overlap {
		return appErrors.Clone(appErrors.ErrConflict, "teacher already has a class during this time")
	}
	return nil
}

func validDay(day string) bool {
	for _, d := range models.ScheduleDays {
		if d == day {
			return true
		}
	}
	return false
}

// clock normalises "H:MM" or "HH:MM" to zero padded "HH:MM" so string
// comparison orders times correctly.
func clock(raw string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return t.Format("15:04"), nil
}
