package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type enrollmentRepository interface {
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error)
	FindRow(ctx context.Context, id string) (*models.EnrollmentRow, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsForYear(ctx context.Context, studentID, academicYearID, excludeID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	CreateBatch(ctx context.Context, enrollments []models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
	BulkAssignSection(ctx context.Context, yearLevelID, academicYearID, sectionID string, studentIDs []string) (int64, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type yearLevelLister interface {
	All(ctx context.Context) ([]models.YearLevel, error)
}

type academicYearLister interface {
	All(ctx context.Context) ([]models.AcademicYear, error)
}

type sectionLister interface {
	All(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
}

// EnrollmentRequest is the payload for creating or updating an enrollment.
type EnrollmentRequest struct {
	StudentID      string                  `json:"student_id" validate:"required"`
	YearLevelID    string                  `json:"year_level_id" validate:"required"`
	AcademicYearID string                  `json:"academic_year_id" validate:"required"`
	SectionID      *string                 `json:"section_id"`
	Status         models.EnrollmentStatus `json:"status"`
	EnrolledAt     *time.Time              `json:"enrolled_at"`
}

// EnrollmentOptions feeds the dropdowns of the enrollment form.
type EnrollmentOptions struct {
	YearLevels    []models.YearLevel     `json:"year_levels"`
	Sections      []models.SectionDetail `json:"sections"`
	AcademicYears []models.AcademicYear  `json:"academic_years"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// EnrollmentService handles enrollment records and their list view.
type EnrollmentService struct {
	repo          enrollmentRepository
	students      studentLookup
	yearLevels    yearLevelLister
	sections      sectionLister
	academicYears academicYearLister
	cache         *CacheService
	list          ListSettings
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students studentLookup, yearLevels yearLevelLister, sections sectionLister, academicYears academicYearLister, cache *CacheService, list ListSettings, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:          repo,
		students:      students,
		yearLevels:    yearLevels,
		sections:      sections,
		academicYears: academicYears,
		cache:         cache,
		list:          list,
		validator:     validate,
		logger:        logger,
	}
}

// List returns one page of normalized enrollment rows.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) (listview.Page[models.EnrollmentRow], error) {
	key := cacheKey(cacheEnrollments, map[string]string{"academic_year": filter.AcademicYearID, "section": filter.SectionID})
	rows, err := loadCollection(ctx, s.cache, key, func(ctx context.Context) ([]models.EnrollmentRow, error) {
		return s.repo.ListAll(ctx, models.EnrollmentFilter{AcademicYearID: filter.AcademicYearID, SectionID: filter.SectionID})
	})
	if err != nil {
		return listview.Page[models.EnrollmentRow]{}, appErrors.Internal(err, "failed to list enrollments")
	}
	matching := make([]models.EnrollmentRow, 0, len(rows))
	for _, row := range rows {
		if filter.Matches(row) {
			matching = append(matching, row)
		}
	}
	return listview.Apply(matching, s.list.Query(filter.Search, filter.Page, filter.PageSize), models.EnrollmentRow.SearchFields), nil
}

// Get returns the normalized row of one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentRow, error) {
	row, err := s.repo.FindRow(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return row, nil
}

// Create enrolls a student into a year level for an academic year.
func (s *EnrollmentService) Create(ctx context.Context, req EnrollmentRequest) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{}
	if err := s.prepare(ctx, enrollment, req, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}
	s.cache.Invalidate(ctx, cacheEnrollments)
	return enrollment, nil
}

// Update modifies an enrollment.
func (s *EnrollmentService) Update(ctx context.Context, id string, req EnrollmentRequest) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	if err := s.prepare(ctx, enrollment, req, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, enrollment); err != nil {
		return nil, appErrors.Internal(err, "failed to update enrollment")
	}
	s.cache.Invalidate(ctx, cacheEnrollments)
	return enrollment, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to delete enrollment")
	}
	s.cache.Invalidate(ctx, cacheEnrollments)
	return nil
}

// Options loads the year levels, sections and academic years shown in the
// enrollment form. Sections are narrowed to academicYearID when given.
func (s *EnrollmentService) Options(ctx context.Context, academicYearID string) (*EnrollmentOptions, error) {
	var opts EnrollmentOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		levels, err := s.yearLevels.All(gctx)
		opts.YearLevels = levels
		return err
	})
	g.Go(func() error {
		sections, err := s.sections.All(gctx, models.SectionFilter{AcademicYearID: academicYearID})
		opts.Sections = sections
		return err
	})
	g.Go(func() error {
		years, err := s.academicYears.All(gctx)
		opts.AcademicYears = years
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.FromError(err)
	}
	return &opts, nil
}

// Import creates enrollments from raw payloads in any of the accepted legacy
// shapes. Payloads that do not resolve to a known student and year level are
// skipped, as are students already enrolled for the academic year.
func (s *EnrollmentService) Import(ctx context.Context, payloads []models.RawEnrollment) (*ImportResult, error) {
	levels, err := s.yearLevels.All(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	resolve := yearLevelResolver(levels)

	result := &ImportResult{}
	seen := make(map[string]struct{}, len(payloads))
	batch := make([]models.Enrollment, 0, len(payloads))
	for i, payload := range payloads {
		row, err := payload.Normalize()
		if err != nil {
			s.logger.Debug("enrollment import payload skipped", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			continue
		}
		yearLevelID, ok := resolve(row.YearLevel)
		if !ok || !row.Status.Valid() {
			s.logger.Debug("enrollment import payload skipped", zap.Int("index", i), zap.String("year_level", row.YearLevel.ID), zap.String("status", string(row.Status)))
			result.Skipped++
			continue
		}
		key := row.StudentID + "|" + row.AcademicYear.ID
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		exists, err := s.repo.ExistsForYear(ctx, row.StudentID, row.AcademicYear.ID, "")
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check existing enrollment")
		}
		if exists {
			result.Skipped++
			continue
		}
		if _, err := s.students.FindByID(ctx, row.StudentID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Internal(err, "failed to load student")
			}
			s.logger.Debug("enrollment import payload skipped: unknown student", zap.Int("index", i), zap.String("student_id", row.StudentID))
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}

		enrollment := models.Enrollment{
			StudentID:      row.StudentID,
			YearLevelID:    yearLevelID,
			AcademicYearID: row.AcademicYear.ID,
			Status:         row.Status,
		}
		if row.Section != nil {
			sectionID := row.Section.ID
			enrollment.SectionID = &sectionID
		}
		batch = append(batch, enrollment)
	}

	if len(batch) > 0 {
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return nil, appErrors.Internal(err, "failed to import enrollments")
		}
		s.cache.Invalidate(ctx, cacheEnrollments)
	}
	result.Created = len(batch)
	s.logger.Info("enrollments imported", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
	return result, nil
}

// AssignSection moves the cohort enrollments of studentIDs to sectionID.
func (s *EnrollmentService) AssignSection(ctx context.Context, yearLevelID, academicYearID, sectionID string, studentIDs []string) (int64, error) {
	updated, err := s.repo.BulkAssignSection(ctx, yearLevelID, academicYearID, sectionID, studentIDs)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to assign section")
	}
	s.cache.Invalidate(ctx, cacheEnrollments)
	return updated, nil
}

func (s *EnrollmentService) prepare(ctx context.Context, enrollment *models.Enrollment, req EnrollmentRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid enrollment payload")
	}
	status := models.EnrollmentStatus(strings.ToUpper(string(req.Status)))
	if status == "" {
		status = models.EnrollmentStatusEnrolled
	}
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to load student")
	}
	exists, err := s.repo.ExistsForYear(ctx, req.StudentID, req.AcademicYearID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check existing enrollment")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled for this academic year")
	}

	enrollment.StudentID = req.StudentID
	enrollment.YearLevelID = req.YearLevelID
	enrollment.AcademicYearID = req.AcademicYearID
	enrollment.SectionID = req.SectionID
	enrollment.Status = status
	if req.EnrolledAt != nil {
		enrollment.EnrolledAt = req.EnrolledAt.UTC()
	}
	return nil
}

// yearLevelResolver maps a normalized year level reference onto a stored
// year level. Legacy grade numbers resolve through the code or the name.
func yearLevelResolver(levels []models.YearLevel) func(models.Ref) (string, bool) {
	byKey := make(map[string]string, len(levels)*3)
	for _, level := range levels {
		byKey[level.ID] = level.ID
		byKey[strings.ToLower(level.Code)] = level.ID
		byKey[strings.ToLower(level.Name)] = level.ID
	}
	return func(ref models.Ref) (string, bool) {
		for _, candidate := range []string{ref.ID, strings.ToLower(ref.ID), strings.ToLower(ref.Name)} {
			if candidate == "" {
				continue
			}
			if id, ok := byKey[candidate]; ok {
				return id, true
			}
		}
		return "", false
	}
}
