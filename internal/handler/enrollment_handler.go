package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
	"github.com/noah-isme/sis-admin/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) (listview.Page[models.EnrollmentRow], error)
	Get(ctx context.Context, id string) (*models.EnrollmentRow, error)
	Create(ctx context.Context, req service.EnrollmentRequest) (*models.Enrollment, error)
	Update(ctx context.Context, id string, req service.EnrollmentRequest) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	Options(ctx context.Context, academicYearID string) (*service.EnrollmentOptions, error)
	Import(ctx context.Context, payloads []models.RawEnrollment) (*service.ImportResult, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

func enrollmentFilterFromQuery(c *gin.Context) models.EnrollmentFilter {
	params := listQuery(c)
	return models.EnrollmentFilter{
		Search:         params.Search,
		AcademicYearID: c.Query("academicYearId"),
		YearLevelID:    c.Query("yearLevelId"),
		SectionID:      c.Query("sectionId"),
		Status:         models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:           params.Page,
		PageSize:       params.PageSize,
	}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param q query string false "Search by student, LRN, section, year level or academic year"
// @Param academicYearId query string false "Filter by academic year"
// @Param yearLevelId query string false "Filter by year level"
// @Param sectionId query string false "Filter by section"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	page, err := h.enrollments.List(c.Request.Context(), enrollmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	row, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Create godoc
// @Summary Enroll a student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.EnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Update godoc
// @Summary Update enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.EnrollmentRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [put]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req service.EnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Options godoc
// @Summary Lookup data for the enrollment form
// @Tags Enrollments
// @Produce json
// @Param academicYearId query string false "Restrict sections to an academic year"
// @Success 200 {object} response.Envelope
// @Router /enrollments/options [get]
func (h *EnrollmentHandler) Options(c *gin.Context) {
	options, err := h.enrollments.Options(c.Request.Context(), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Import godoc
// @Summary Import enrollments in bulk
// @Description Accepts enrollment payloads in any legacy shape. Incomplete payloads and students already enrolled for the academic year are skipped.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body []models.RawEnrollment true "Raw enrollments"
// @Success 200 {object} response.Envelope
// @Router /enrollments/import [post]
func (h *EnrollmentHandler) Import(c *gin.Context) {
	var payloads []models.RawEnrollment
	if !bindJSON(c, &payloads) {
		return
	}
	if len(payloads) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one enrollment is required"))
		return
	}
	result, err := h.enrollments.Import(c.Request.Context(), payloads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
