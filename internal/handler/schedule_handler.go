package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	"github.com/noah-isme/sis-admin/pkg/listview"
	"github.com/noah-isme/sis-admin/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.TeacherScheduleFilter) (listview.Page[models.TeacherScheduleDetail], error)
	Create(ctx context.Context, req service.TeacherScheduleRequest) (*models.TeacherSchedule, error)
	Update(ctx context.Context, id string, req service.TeacherScheduleRequest) (*models.TeacherSchedule, error)
	Delete(ctx context.Context, id string) error
	ListAdvisories(ctx context.Context, filter service.AdvisoryFilter) (listview.Page[models.Advisory], error)
	AssignAdviser(ctx context.Context, sectionID string, req service.AssignAdviserRequest) (*models.Section, error)
}

// ScheduleHandler exposes teacher scheduling and advisory endpoints.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List teacher schedules
// @Tags Schedules
// @Produce json
// @Param q query string false "Search by teacher, subject, section or day"
// @Param teacherId query string false "Filter by teacher"
// @Param sectionId query string false "Filter by section"
// @Param academicYearId query string false "Filter by academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	params := listQuery(c)
	filter := models.TeacherScheduleFilter{
		Search:         params.Search,
		TeacherID:      c.Query("teacherId"),
		SectionID:      c.Query("sectionId"),
		AcademicYearID: c.Query("academicYearId"),
		Page:           params.Page,
		PageSize:       params.PageSize,
	}
	page, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// Create godoc
// @Summary Create teacher schedule slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.TeacherScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.TeacherScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update teacher schedule slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.TeacherScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.TeacherScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete teacher schedule slot
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Advisories godoc
// @Summary List section advisers
// @Tags Schedules
// @Produce json
// @Param q query string false "Search by section, year level or adviser"
// @Param academicYearId query string false "Filter by academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /advisories [get]
func (h *ScheduleHandler) Advisories(c *gin.Context) {
	params := listQuery(c)
	page, err := h.schedules.ListAdvisories(c.Request.Context(), service.AdvisoryFilter{
		AcademicYearID: c.Query("academicYearId"),
		Search:         params.Search,
		Page:           params.Page,
		PageSize:       params.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// AssignAdviser godoc
// @Summary Assign or clear a section adviser
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignAdviserRequest true "Adviser payload, null teacher clears"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id}/adviser [put]
func (h *ScheduleHandler) AssignAdviser(c *gin.Context) {
	var req service.AssignAdviserRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.schedules.AssignAdviser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
