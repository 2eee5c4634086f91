package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type sectionRepository interface {
	ListAll(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Exists(ctx context.Context, name, yearLevelID, academicYearID, excludeID string) (bool, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
}

// SectionRequest is the payload for creating or updating a section.
type SectionRequest struct {
	Name           string `json:"name" validate:"required,max=50"`
	YearLevelID    string `json:"year_level_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
	Capacity       int    `json:"capacity" validate:"gte=0,lte=200"`
}

func sectionSearchFields(s models.SectionDetail) []string {
	fields := []string{s.Name, s.YearLevelName, s.AcademicYearName}
	if s.AdviserName != nil {
		fields = append(fields, *s.AdviserName)
	}
	return fields
}

// SectionService manages sections.
type SectionService struct {
	repo      sectionRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs the service.
func NewSectionService(repo sectionRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// All returns every section matching the exact-match filters.
func (s *SectionService) All(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	key := cacheKey(cacheSections, map[string]string{"year_level": filter.YearLevelID, "academic_year": filter.AcademicYearID})
	sections, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.SectionDetail, error) {
		return s.repo.ListAll(ctx, filter)
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sections")
	}
	return sections, nil
}

// List returns one page of the sections table.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) (listview.Page[models.SectionDetail], error) {
	sections, err := s.All(ctx, filter)
	if err != nil {
		return listview.Page[models.SectionDetail]{}, err
	}
	return listview.Apply(sections, s.list.Query(filter.Search, filter.Page, filter.PageSize), sectionSearchFields), nil
}

// Get returns one section.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Internal(err, "failed to load section")
	}
	return section, nil
}

// Create adds a section.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid section payload")
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}
	section := &models.Section{Name: req.Name, YearLevelID: req.YearLevelID, AcademicYearID: req.AcademicYearID, Capacity: req.Capacity}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Internal(err, "failed to create section")
	}
	s.cache.Invalidate(ctx, cacheSections)
	return section, nil
}

// Update modifies a section.
func (s *SectionService) Update(ctx context.Context, id string, req SectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid section payload")
	}
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}
	section.Name, section.YearLevelID, section.AcademicYearID, section.Capacity = req.Name, req.YearLevelID, req.AcademicYearID, req.Capacity
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Internal(err, "failed to update section")
	}
	s.cache.Invalidate(ctx, cacheSections, cacheEnrollments, cacheSchedules)
	return section, nil
}

// Delete removes a section.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Internal(err, "failed to delete section")
	}
	s.cache.Invalidate(ctx, cacheSections, cacheEnrollments, cacheSchedules)
	return nil
}

func (s *SectionService) ensureUnique(ctx context.Context, req SectionRequest, excludeID string) error {
	exists, err := s.repo.Exists(ctx, req.Name, req.YearLevelID, req.AcademicYearID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate section")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "section already exists for this year level and academic year")
	}
	return nil
}
