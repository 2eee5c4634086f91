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

type teacherRepository interface {
	ListAll(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherRequest is the payload for creating or updating a teacher.
type TeacherRequest struct {
	EmployeeNo string  `json:"employee_no" validate:"required,max=30"`
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	MiddleName string  `json:"middle_name" validate:"max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	Active     *bool   `json:"active"`
}

func (r TeacherRequest) apply(teacher *models.Teacher) {
	teacher.EmployeeNo = r.EmployeeNo
	teacher.FirstName = r.FirstName
	teacher.MiddleName = r.MiddleName
	teacher.LastName = r.LastName
	teacher.Email = strings.ToLower(strings.TrimSpace(r.Email))
	teacher.Phone = r.Phone
	teacher.Department = r.Department
	teacher.Position = r.Position
	if r.Active != nil {
		teacher.Active = *r.Active
	}
}

func teacherSearchFields(t models.Teacher) []string {
	fields := []string{t.EmployeeNo, t.FirstName, t.MiddleName, t.LastName, t.FullName(), t.Email}
	if t.Department != nil {
		fields = append(fields, *t.Department)
	}
	return fields
}

// TeacherService handles teacher use-cases.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the service.
func NewTeacherService(repo teacherRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// List returns one page of the teachers table.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) (listview.Page[models.Teacher], error) {
	active := ""
	if filter.Active != nil {
		active = boolString(*filter.Active)
	}
	key := cacheKey(cacheTeachers, map[string]string{"department": filter.Department, "active": active})
	teachers, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.Teacher, error) {
		return s.repo.ListAll(ctx, filter)
	})
	if err != nil {
		return listview.Page[models.Teacher]{}, appErrors.Internal(err, "failed to list teachers")
	}
	return listview.Apply(teachers, s.list.Query(filter.Search, filter.Page, filter.PageSize), teacherSearchFields), nil
}

// Get returns a teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher. New teachers are active unless stated.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	teacher := &models.Teacher{Active: true}
	req.apply(teacher)
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	s.cache.Invalidate(ctx, cacheTeachers)
	return teacher, nil
}

// Update modifies a teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}
	req.apply(teacher)
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	s.cache.Invalidate(ctx, cacheTeachers, cacheSections, cacheSchedules)
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to delete teacher")
	}
	s.cache.Invalidate(ctx, cacheTeachers, cacheSections, cacheSchedules)
	return nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
