package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/repository"
	"github.com/noah-isme/sis-admin/internal/selection"
	"github.com/noah-isme/sis-admin/internal/session"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type selectionStore interface {
	Get(ctx context.Context, userID string) ([]models.EnrollmentRow, error)
	Update(ctx context.Context, userID string, mutate repository.SelectionMutation) ([]models.EnrollmentRow, error)
	Delete(ctx context.Context, userID string) error
}

type enrollmentBrowser interface {
	List(ctx context.Context, filter models.EnrollmentFilter) (listview.Page[models.EnrollmentRow], error)
	Get(ctx context.Context, id string) (*models.EnrollmentRow, error)
	AssignSection(ctx context.Context, yearLevelID, academicYearID, sectionID string, studentIDs []string) (int64, error)
}

type sectionGetter interface {
	Get(ctx context.Context, id string) (*models.Section, error)
}

// Selection outcomes reported to metrics.
const (
	selectionApplied  = "applied"
	selectionRejected = "rejected"
)

// SelectionView is the selection returned after every operation. Rejected is
// set when the requested rows belonged to another cohort and the set was left
// unchanged.
type SelectionView struct {
	Items    []models.EnrollmentRow `json:"items"`
	State    selection.State        `json:"state"`
	Rejected bool                   `json:"-"`
}

// AssignSectionResult reports the outcome of a bulk section assignment.
type AssignSectionResult struct {
	SectionID string `json:"section_id"`
	Updated   int64  `json:"updated"`
}

// SelectionService keeps each user's enrollment selection between requests.
type SelectionService struct {
	store       selectionStore
	enrollments enrollmentBrowser
	sections    sectionGetter
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSelectionService constructs the selection service.
func NewSelectionService(store selectionStore, enrollments enrollmentBrowser, sections sectionGetter, metrics *MetricsService, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{store: store, enrollments: enrollments, sections: sections, metrics: metrics, logger: logger}
}

// Register subscribes the service to session invalidation so a user's
// selection is dropped when their session ends.
func (s *SelectionService) Register(hub *session.Hub) func() {
	return hub.Subscribe("selection", func(ctx context.Context, userID string, reason session.Reason) error {
		return s.store.Delete(ctx, userID)
	})
}

// Get returns the current selection of userID.
func (s *SelectionService) Get(ctx context.Context, userID string) (*SelectionView, error) {
	set, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view(set, false), nil
}

// Toggle adds or removes the student behind enrollmentID. A row from another
// cohort leaves the set unchanged.
func (s *SelectionService) Toggle(ctx context.Context, userID, enrollmentID string) (*SelectionView, error) {
	row, err := s.enrollments.Get(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, "toggle", func(set []models.EnrollmentRow) ([]models.EnrollmentRow, bool) {
		if !selection.Contains(set, row.StudentID) && !selection.CanSelect(*row, set) {
			return set, false
		}
		return selection.Toggle(*row, set), true
	})
}

// SelectAll adds every row of the visible page that shares the selection's
// cohort, or the cohort of the first visible row when nothing is selected.
func (s *SelectionService) SelectAll(ctx context.Context, userID string, filter models.EnrollmentFilter) (*SelectionView, error) {
	visible, err := s.visible(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, "select_all", func(set []models.EnrollmentRow) ([]models.EnrollmentRow, bool) {
		if len(visible) > 0 && len(set) > 0 && !anySelectable(visible, set) {
			return set, false
		}
		return selection.SelectAllMatching(visible, set), true
	})
}

// DeselectVisible removes the students on the visible page from the selection.
func (s *SelectionService) DeselectVisible(ctx context.Context, userID string, filter models.EnrollmentFilter) (*SelectionView, error) {
	visible, err := s.visible(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, "deselect_visible", func(set []models.EnrollmentRow) ([]models.EnrollmentRow, bool) {
		return selection.DeselectAllVisible(visible, set), true
	})
}

// Clear empties the selection and releases its cohort.
func (s *SelectionService) Clear(ctx context.Context, userID string) (*SelectionView, error) {
	if err := s.store.Delete(ctx, userID); err != nil {
		return nil, appErrors.Internal(err, "failed to clear selection")
	}
	s.metrics.RecordSelection("clear", selectionApplied, 0)
	return view(selection.Clear(), false), nil
}

// AssignSection moves every selected student's enrollment to sectionID. The
// section must belong to the selection's cohort. The selection is cleared
// once the move succeeds.
func (s *SelectionService) AssignSection(ctx context.Context, userID, sectionID string) (*AssignSectionResult, error) {
	set, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := selection.StateOf(set)
	if !state.Constrained {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no enrollments selected")
	}
	section, err := s.sections.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.YearLevelID != state.Key.YearLevelID || section.AcademicYearID != state.Key.AcademicYearID {
		s.metrics.RecordSelection("assign_section", selectionRejected, len(set))
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "section does not belong to the selected year level and academic year")
	}

	updated, err := s.enrollments.AssignSection(ctx, state.Key.YearLevelID, state.Key.AcademicYearID, section.ID, selection.StudentIDs(set))
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to clear selection after section assignment", zap.String("user_id", userID), zap.Error(err))
	}
	s.metrics.RecordSelection("assign_section", selectionApplied, len(set))
	s.logger.Info("section assigned to selection",
		zap.String("user_id", userID),
		zap.String("section_id", section.ID),
		zap.Int("selected", len(set)),
		zap.Int64("updated", updated),
	)
	return &AssignSectionResult{SectionID: section.ID, Updated: updated}, nil
}

func (s *SelectionService) visible(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error) {
	page, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *SelectionService) load(ctx context.Context, userID string) ([]models.EnrollmentRow, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	set, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load selection")
	}
	return set, nil
}

// mutate applies apply to the stored set atomically. A mutation that declines
// to write reports a cohort mismatch and leaves the set unchanged.
func (s *SelectionService) mutate(ctx context.Context, userID, action string, apply repository.SelectionMutation) (*SelectionView, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	var rejected bool
	set, err := s.store.Update(ctx, userID, func(current []models.EnrollmentRow) ([]models.EnrollmentRow, bool) {
		next, write := apply(current)
		rejected = !write
		return next, write
	})
	switch {
	case errors.Is(err, repository.ErrSelectionConflict):
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "selection was changed by another request, retry")
	case err != nil:
		return nil, appErrors.Internal(err, "failed to update selection")
	}
	if rejected {
		return s.reject(userID, action, set), nil
	}
	s.metrics.RecordSelection(action, selectionApplied, len(set))
	return view(set, false), nil
}

func (s *SelectionService) reject(userID, action string, set []models.EnrollmentRow) *SelectionView {
	s.metrics.RecordSelection(action, selectionRejected, len(set))
	s.logger.Debug("selection rejected: cohort mismatch", zap.String("user_id", userID), zap.String("action", action))
	return view(set, true)
}

func anySelectable(rows, set []models.EnrollmentRow) bool {
	for _, row := range rows {
		if selection.CanSelect(row, set) {
			return true
		}
	}
	return false
}

func view(set []models.EnrollmentRow, rejected bool) *SelectionView {
	if set == nil {
		set = selection.Clear()
	}
	return &SelectionView{Items: set, State: selection.StateOf(set), Rejected: rejected}
}
