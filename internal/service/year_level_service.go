package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type yearLevelRepository interface {
	ListAll(ctx context.Context) ([]models.YearLevel, error)
	FindByID(ctx context.Context, id string) (*models.YearLevel, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, level *models.YearLevel) error
	Update(ctx context.Context, level *models.YearLevel) error
	Delete(ctx context.Context, id string) error
}

// YearLevelRequest is the payload for creating or updating a year level.
type YearLevelRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	Code      string `json:"code" validate:"required,max=10"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// YearLevelService manages year levels.
type YearLevelService struct {
	repo      yearLevelRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewYearLevelService constructs the service.
func NewYearLevelService(repo yearLevelRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *YearLevelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YearLevelService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// All returns every year level in display order.
func (s *YearLevelService) All(ctx context.Context) ([]models.YearLevel, error) {
	levels, err := loadCollection(ctx, s.cache, cacheKey(cacheYearLevels, nil), s.repo.ListAll)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list year levels")
	}
	return levels, nil
}

// List returns one page of the year levels table.
func (s *YearLevelService) List(ctx context.Context, filter models.YearLevelFilter) (listview.Page[models.YearLevel], error) {
	levels, err := s.All(ctx)
	if err != nil {
		return listview.Page[models.YearLevel]{}, err
	}
	return listview.Apply(levels, s.list.Query(filter.Search, filter.Page, filter.PageSize), func(l models.YearLevel) []string {
		return []string{l.Name, l.Code}
	}), nil
}

// Get returns one year level.
func (s *YearLevelService) Get(ctx context.Context, id string) (*models.YearLevel, error) {
	level, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "year level not found")
		}
		return nil, appErrors.Internal(err, "failed to load year level")
	}
	return level, nil
}

// Create adds a year level.
func (s *YearLevelService) Create(ctx context.Context, req YearLevelRequest) (*models.YearLevel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid year level payload")
	}
	if err := s.ensureUniqueCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}
	level := &models.YearLevel{Name: req.Name, Code: strings.ToUpper(req.Code), SortOrder: req.SortOrder}
	if err := s.repo.Create(ctx, level); err != nil {
		return nil, appErrors.Internal(err, "failed to create year level")
	}
	s.cache.Invalidate(ctx, cacheYearLevels)
	return level, nil
}

// Update modifies a year level.
func (s *YearLevelService) Update(ctx context.Context, id string, req YearLevelRequest) (*models.YearLevel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid year level payload")
	}
	level, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.Code, id); err != nil {
		return nil, err
	}
	level.Name, level.Code, level.SortOrder = req.Name, strings.ToUpper(req.Code), req.SortOrder
	if err := s.repo.Update(ctx, level); err != nil {
		return nil, appErrors.Internal(err, "failed to update year level")
	}
	s.cache.Invalidate(ctx, cacheYearLevels, cacheSections, cacheEnrollments, cacheSchedules)
	return level, nil
}

// Delete removes a year level.
func (s *YearLevelService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "year level not found")
		}
		return appErrors.Internal(err, "failed to delete year level")
	}
	s.cache.Invalidate(ctx, cacheYearLevels)
	return nil
}

func (s *YearLevelService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate year level code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "year level code already used")
	}
	return nil
}
