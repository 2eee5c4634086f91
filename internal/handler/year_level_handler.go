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

type yearLevelService interface {
	List(ctx context.Context, filter models.YearLevelFilter) (listview.Page[models.YearLevel], error)
	Get(ctx context.Context, id string) (*models.YearLevel, error)
	Create(ctx context.Context, req service.YearLevelRequest) (*models.YearLevel, error)
	Update(ctx context.Context, id string, req service.YearLevelRequest) (*models.YearLevel, error)
	Delete(ctx context.Context, id string) error
}

// YearLevelHandler exposes year level endpoints.
type YearLevelHandler struct {
	levels yearLevelService
}

// NewYearLevelHandler constructs YearLevelHandler.
func NewYearLevelHandler(levels yearLevelService) *YearLevelHandler {
	return &YearLevelHandler{levels: levels}
}

// List godoc
// @Summary List year levels
// @Tags YearLevels
// @Produce json
// @Param q query string false "Search by name or code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /year-levels [get]
func (h *YearLevelHandler) List(c *gin.Context) {
	params := listQuery(c)
	page, err := h.levels.List(c.Request.Context(), models.YearLevelFilter{
		Search:   params.Search,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// Get godoc
// @Summary Get year level
// @Tags YearLevels
// @Produce json
// @Param id path string true "Year level ID"
// @Success 200 {object} response.Envelope
// @Router /year-levels/{id} [get]
func (h *YearLevelHandler) Get(c *gin.Context) {
	level, err := h.levels.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, level, nil)
}

// Create godoc
// @Summary Create year level
// @Tags YearLevels
// @Accept json
// @Produce json
// @Param payload body service.YearLevelRequest true "Year level payload"
// @Success 201 {object} response.Envelope
// @Router /year-levels [post]
func (h *YearLevelHandler) Create(c *gin.Context) {
	var req service.YearLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// Update godoc
// @Summary Update year level
// @Tags YearLevels
// @Accept json
// @Produce json
// @Param id path string true "Year level ID"
// @Param payload body service.YearLevelRequest true "Year level payload"
// @Success 200 {object} response.Envelope
// @Router /year-levels/{id} [put]
func (h *YearLevelHandler) Update(c *gin.Context) {
	var req service.YearLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, level, nil)
}

// Delete godoc
// @Summary Delete year level
// @Tags YearLevels
// @Param id path string true "Year level ID"
// @Success 204
// @Router /year-levels/{id} [delete]
func (h *YearLevelHandler) Delete(c *gin.Context) {
	if err := h.levels.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
