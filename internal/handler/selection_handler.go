package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/response"
)

type selectionService interface {
	Get(ctx context.Context, userID string) (*service.SelectionView, error)
	Toggle(ctx context.Context, userID, enrollmentID string) (*service.SelectionView, error)
	SelectAll(ctx context.Context, userID string, filter models.EnrollmentFilter) (*service.SelectionView, error)
	DeselectVisible(ctx context.Context, userID string, filter models.EnrollmentFilter) (*service.SelectionView, error)
	Clear(ctx context.Context, userID string) (*service.SelectionView, error)
	AssignSection(ctx context.Context, userID, sectionID string) (*service.AssignSectionResult, error)
}

// ToggleSelectionRequest names the enrollment row to add or remove.
type ToggleSelectionRequest struct {
	EnrollmentID string `json:"enrollment_id" binding:"required"`
}

// VisibleRowsRequest repeats the list query the user is looking at.
type VisibleRowsRequest struct {
	Query          string `json:"q"`
	AcademicYearID string `json:"academic_year_id"`
	YearLevelID    string `json:"year_level_id"`
	SectionID      string `json:"section_id"`
	Status         string `json:"status"`
	Page           int    `json:"page"`
	Limit          int    `json:"limit"`
}

func (r VisibleRowsRequest) filter() models.EnrollmentFilter {
	return models.EnrollmentFilter{
		Search:         strings.TrimSpace(r.Query),
		AcademicYearID: r.AcademicYearID,
		YearLevelID:    r.YearLevelID,
		SectionID:      r.SectionID,
		Status:         models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
		Page:           r.Page,
		PageSize:       r.Limit,
	}
}

// AssignSelectionRequest targets the section for a bulk assignment.
type AssignSelectionRequest struct {
	SectionID string `json:"section_id" binding:"required"`
}

// SelectionHandler exposes the per-user enrollment selection.
type SelectionHandler struct {
	selection selectionService
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(selection selectionService) *SelectionHandler {
	return &SelectionHandler{selection: selection}
}

// Get godoc
// @Summary Current enrollment selection
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/selection [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.respond(c)(h.selection.Get(c.Request.Context(), claims.UserID))
}

// Toggle godoc
// @Summary Add or remove one enrollment from the selection
// @Description Rows from another cohort leave the selection unchanged and set meta.rejected.
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body ToggleSelectionRequest true "Enrollment to toggle"
// @Success 200 {object} response.Envelope
// @Router /enrollments/selection/toggle [post]
func (h *SelectionHandler) Toggle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req ToggleSelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.selection.Toggle(c.Request.Context(), claims.UserID, req.EnrollmentID))
}

// SelectAll godoc
// @Summary Select every visible row of the selection's cohort
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body VisibleRowsRequest true "List query of the visible page"
// @Success 200 {object} response.Envelope
// @Router /enrollments/selection/select-all [post]
func (h *SelectionHandler) SelectAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req VisibleRowsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.selection.SelectAll(c.Request.Context(), claims.UserID, req.filter()))
}

// DeselectVisible godoc
// @Summary Drop every visible row from the selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body VisibleRowsRequest true "List query of the visible page"
// @Success 200 {object} response.Envelope
// @Router /enrollments/selection/deselect-visible [post]
func (h *SelectionHandler) DeselectVisible(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req VisibleRowsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.selection.DeselectVisible(c.Request.Context(), claims.UserID, req.filter()))
}

// Clear godoc
// @Summary Clear the selection
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.respond(c)(h.selection.Clear(c.Request.Context(), claims.UserID))
}

// AssignSection godoc
// @Summary Move every selected student to one section
// @Description The section must belong to the selection's year level and academic year.
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body AssignSelectionRequest true "Target section"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments/selection/assign-section [post]
func (h *SelectionHandler) AssignSection(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req AssignSelectionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.selection.AssignSection(c.Request.Context(), claims.UserID, req.SectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *SelectionHandler) respond(c *gin.Context) func(*service.SelectionView, error) {
	return func(view *service.SelectionView, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view, nil, map[string]interface{}{"rejected": view.Rejected})
	}
}
