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

type studentRepository interface {
	ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest is the payload for creating or updating a student.
type StudentRequest struct {
	LRN             string    `json:"lrn" validate:"required,numeric,max=12"`
	FirstName       string    `json:"first_name" validate:"required,max=100"`
	MiddleName      string    `json:"middle_name" validate:"max=100"`
	LastName        string    `json:"last_name" validate:"required,max=100"`
	Gender          string    `json:"gender" validate:"required,oneof=M F"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	Address         string    `json:"address"`
	GuardianName    string    `json:"guardian_name"`
	GuardianContact string    `json:"guardian_contact"`
}

func (r StudentRequest) apply(student *models.Student) {
	student.LRN = r.LRN
	student.FirstName = r.FirstName
	student.MiddleName = r.MiddleName
	student.LastName = r.LastName
	student.Gender = r.Gender
	student.BirthDate = r.BirthDate
	student.Address = r.Address
	student.GuardianName = r.GuardianName
	student.GuardianContact = r.GuardianContact
}

func studentSearchFields(s models.Student) []string {
	return []string{s.LRN, s.FirstName, s.MiddleName, s.LastName, s.FullName(), s.Gender}
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	list      ListSettings
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, list: list, validator: validate, logger: logger}
}

// List returns one page of the students table.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) (listview.Page[models.Student], error) {
	key := cacheKey(cacheStudents, map[string]string{"gender": filter.Gender})
	students, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.Student, error) {
		return s.repo.ListAll(ctx, filter)
	})
	if err != nil {
		return listview.Page[models.Student]{}, appErrors.Internal(err, "failed to list students")
	}
	return listview.Apply(students, s.list.Query(filter.Search, filter.Page, filter.PageSize), studentSearchFields), nil
}

// Get returns a student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	if err := s.ensureUniqueLRN(ctx, req.LRN, ""); err != nil {
		return nil, err
	}
	student := &models.Student{}
	req.apply(student)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.cache.Invalidate(ctx, cacheStudents)
	return student, nil
}

// Update modifies a student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueLRN(ctx, req.LRN, id); err != nil {
		return nil, err
	}
	req.apply(student)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	s.cache.Invalidate(ctx, cacheStudents, cacheEnrollments)
	return student, nil
}

// Delete removes a student together with their enrollments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	s.cache.Invalidate(ctx, cacheStudents, cacheEnrollments)
	return nil
}

func (s *StudentService) ensureUniqueLRN(ctx context.Context, lrn, excludeID string) error {
	exists, err := s.repo.ExistsByLRN(ctx, lrn, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate lrn")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "lrn already used")
	}
	return nil
}
