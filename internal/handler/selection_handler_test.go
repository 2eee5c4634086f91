package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/selection"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

type selectionServiceMock struct {
	view       *service.SelectionView
	err        error
	lastUser   string
	lastID     string
	lastFilter models.EnrollmentFilter
	assigned   *service.AssignSectionResult
}

func (m *selectionServiceMock) Get(ctx context.Context, userID string) (*service.SelectionView, error) {
	m.lastUser = userID
	return m.view, m.err
}

func (m *selectionServiceMock) Toggle(ctx context.Context, userID, enrollmentID string) (*service.SelectionView, error) {
	m.lastUser, m.lastID = userID, enrollmentID
	return m.view, m.err
}

func (m *selectionServiceMock) SelectAll(ctx context.Context, userID string, filter models.EnrollmentFilter) (*service.SelectionView, error) {
	m.lastUser, m.lastFilter = userID, filter
	return m.view, m.err
}

func (m *selectionServiceMock) DeselectVisible(ctx context.Context, userID string, filter models.EnrollmentFilter) (*service.SelectionView, error) {
	m.lastUser, m.lastFilter = userID, filter
	return m.view, m.err
}

func (m *selectionServiceMock) Clear(ctx context.Context, userID string) (*service.SelectionView, error) {
	m.lastUser = userID
	return m.view, m.err
}

func (m *selectionServiceMock) AssignSection(ctx context.Context, userID, sectionID string) (*service.AssignSectionResult, error) {
	m.lastUser, m.lastID = userID, sectionID
	return m.assigned, m.err
}

func cohortView(rejected bool) *service.SelectionView {
	row := models.EnrollmentRow{
		ID:           "e1",
		StudentID:    "s1",
		YearLevel:    models.Ref{ID: "yl-7", Name: "Grade 7"},
		AcademicYear: models.Ref{ID: "ay-1", Name: "2024-2025"},
	}
	set := []models.EnrollmentRow{row}
	return &service.SelectionView{Items: set, State: selection.StateOf(set), Rejected: rejected}
}

func TestSelectionHandlerToggleAccepted(t *testing.T) {
	mockSvc := &selectionServiceMock{view: cohortView(false)}
	handler := NewSelectionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/enrollments/selection/toggle", []byte(`{"enrollment_id":"e1"}`))
	asAdmin(c)
	handler.Toggle(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", mockSvc.lastUser)
	assert.Equal(t, "e1", mockSvc.lastID)
	env := decode(t, w)
	assert.Equal(t, false, env.Meta["rejected"])
	assert.Contains(t, string(env.Data), `"constrained":true`)
}

func TestSelectionHandlerToggleRejectedKeepsStatusOK(t *testing.T) {
	handler := NewSelectionHandler(&selectionServiceMock{view: cohortView(true)})

	c, w := newGinContext(http.MethodPost, "/enrollments/selection/toggle", []byte(`{"enrollment_id":"e9"}`))
	asAdmin(c)
	handler.Toggle(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Meta["rejected"])
}

func TestSelectionHandlerToggleRequiresEnrollment(t *testing.T) {
	handler := NewSelectionHandler(&selectionServiceMock{})

	c, w := newGinContext(http.MethodPost, "/enrollments/selection/toggle", []byte(`{}`))
	asAdmin(c)
	handler.Toggle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectionHandlerSelectAllUsesVisibleQuery(t *testing.T) {
	mockSvc := &selectionServiceMock{view: cohortView(false)}
	handler := NewSelectionHandler(mockSvc)

	body := []byte(`{"q":" santos ","academic_year_id":"ay-1","status":"enrolled","page":2,"limit":25}`)
	c, w := newGinContext(http.MethodPost, "/enrollments/selection/select-all", body)
	asAdmin(c)
	handler.SelectAll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrollmentFilter{
		Search:         "santos",
		AcademicYearID: "ay-1",
		Status:         models.EnrollmentStatusEnrolled,
		Page:           2,
		PageSize:       25,
	}, mockSvc.lastFilter)
}

func TestSelectionHandlerRequiresUser(t *testing.T) {
	handler := NewSelectionHandler(&selectionServiceMock{view: cohortView(false)})

	c, w := newGinContext(http.MethodGet, "/enrollments/selection", nil)
	handler.Get(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSelectionHandlerClear(t *testing.T) {
	mockSvc := &selectionServiceMock{view: &service.SelectionView{Items: []models.EnrollmentRow{}}}
	handler := NewSelectionHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/enrollments/selection", nil)
	asAdmin(c)
	handler.Clear(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestSelectionHandlerAssignSection(t *testing.T) {
	mockSvc := &selectionServiceMock{assigned: &service.AssignSectionResult{SectionID: "sec-2", Updated: 3}}
	handler := NewSelectionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/enrollments/selection/assign-section", []byte(`{"section_id":"sec-2"}`))
	asAdmin(c)
	handler.AssignSection(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sec-2", mockSvc.lastID)
	assert.Contains(t, w.Body.String(), `"updated":3`)
}

func TestSelectionHandlerAssignSectionPrecondition(t *testing.T) {
	mockSvc := &selectionServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "section belongs to another cohort")}
	handler := NewSelectionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/enrollments/selection/assign-section", []byte(`{"section_id":"sec-x"}`))
	asAdmin(c)
	handler.AssignSection(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "PRECONDITION_FAILED", decode(t, w).Error.Code)
}
