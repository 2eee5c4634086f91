package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	"github.com/noah-isme/sis-admin/pkg/listview"
	"github.com/noah-isme/sis-admin/pkg/response"
)

type calendarService interface {
	List(ctx context.Context, filter models.CalendarFilter) (listview.Page[models.CalendarEventDetail], error)
	Create(ctx context.Context, req service.CalendarEventRequest) (*models.CalendarEvent, error)
	Update(ctx context.Context, id string, req service.CalendarEventRequest) (*models.CalendarEvent, error)
	Delete(ctx context.Context, id string) error
}

// CalendarHandler exposes academic calendar endpoints.
type CalendarHandler struct {
	calendar calendarService
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar calendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// List godoc
// @Summary List calendar events
// @Tags Calendar
// @Produce json
// @Param q query string false "Search by title, type or description"
// @Param academicYearId query string false "Filter by academic year"
// @Param type query string false "Filter by event type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) List(c *gin.Context) {
	params := listQuery(c)
	filter := models.CalendarFilter{
		Search:         params.Search,
		AcademicYearID: c.Query("academicYearId"),
		EventType:      models.CalendarEventType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Page:           params.Page,
		PageSize:       params.PageSize,
	}
	page, err := h.calendar.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// Create godoc
// @Summary Create calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.CalendarEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /calendar [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req service.CalendarEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.calendar.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.CalendarEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Router /calendar/{id} [put]
func (h *CalendarHandler) Update(c *gin.Context) {
	var req service.CalendarEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.calendar.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete calendar event
// @Tags Calendar
// @Param id path string true "Event ID"
// @Success 204
// @Router /calendar/{id} [delete]
func (h *CalendarHandler) Delete(c *gin.Context) {
	if err := h.calendar.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
