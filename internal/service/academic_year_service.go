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

type academicYearRepository interface {
	ListAll(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) error
}

// AcademicYearRequest is the payload for creating or updating an academic year.
type AcademicYearRequest struct {
	Name      string    `json:"name" validate:"required,max=20"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

// AcademicYearService manages academic years.
type AcademicYearService struct {
	repo      academicYearRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(repo academicYearRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// All returns every academic year, newest first.
func (s *AcademicYearService) All(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := loadCollection(ctx, s.cache, cacheKey(cacheAcademicYears, nil), func(ctx context.Context) ([]models.AcademicYear, error) {
		return s.repo.ListAll(ctx, models.AcademicYearFilter{})
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list academic years")
	}
	return years, nil
}

// List returns one page of the academic years table.
func (s *AcademicYearService) List(ctx context.Context, filter models.AcademicYearFilter) (listview.Page[models.AcademicYear], error) {
	years, err := s.All(ctx)
	if err != nil {
		return listview.Page[models.AcademicYear]{}, err
	}
	if filter.IsActive != nil {
		kept := make([]models.AcademicYear, 0, len(years))
		for _, y := range years {
			if y.IsActive == *filter.IsActive {
				kept = append(kept, y)
			}
		}
		years = kept
	}
	return listview.Apply(years, s.list.Query(filter.Search, filter.Page, filter.PageSize), func(y models.AcademicYear) []string {
		return []string{y.Name}
	}), nil
}

// Get returns one academic year.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to load academic year")
	}
	return year, nil
}

// Create adds an inactive academic year.
func (s *AcademicYearService) Create(ctx context.Context, req AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid academic year payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	year := &models.AcademicYear{Name: req.Name, StartDate: req.StartDate, EndDate: req.EndDate}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Internal(err, "failed to create academic year")
	}
	s.cache.Invalidate(ctx, cacheAcademicYears)
	return year, nil
}

// Update renames or re-dates an academic year.
func (s *AcademicYearService) Update(ctx context.Context, id string, req AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid academic year payload")
	}
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	year.Name, year.StartDate, year.EndDate = req.Name, req.StartDate, req.EndDate
	if err := s.repo.Update(ctx, year); err != nil {
		return nil, appErrors.Internal(err, "failed to update academic year")
	}
	s.cache.Invalidate(ctx, cacheAcademicYears, cacheSections, cacheEnrollments, cacheCalendar)
	return year, nil
}

// Delete removes an academic year. The active year cannot be deleted.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	year, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if year.IsActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the active academic year")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return appErrors.Internal(err, "failed to delete academic year")
	}
	s.cache.Invalidate(ctx, cacheAcademicYears)
	return nil
}

// Activate makes id the only active academic year.
func (s *AcademicYearService) Activate(ctx context.Context, id string) (*models.AcademicYear, error) {
	if err := s.repo.SetActive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Internal(err, "failed to activate academic year")
	}
	s.cache.Invalidate(ctx, cacheAcademicYears)
	s.logger.Info("academic year activated", zap.String("academic_year_id", id))
	return s.Get(ctx, id)
}

func (s *AcademicYearService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate academic year name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "academic year name already used")
	}
	return nil
}
