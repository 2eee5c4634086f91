package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
	"github.com/noah-isme/sis-admin/pkg/response"
)

type reportService interface {
	ListSF5(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF5Row], error)
	ListSF6(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF6Row], error)
}

type exportService interface {
	Request(ctx context.Context, reportType models.ReportType, filter models.ReportFilter, actorID string) (*models.ExportJob, error)
	Status(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes SF5/SF6 report views and their CSV exports.
type ReportHandler struct {
	reports reportService
	exports exportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService, exports exportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

func reportFilterFromQuery(c *gin.Context) models.ReportFilter {
	params := listQuery(c)
	return models.ReportFilter{
		AcademicYearID: c.Query("academicYearId"),
		SectionID:      c.Query("sectionId"),
		YearLevelID:    c.Query("yearLevelId"),
		Search:         params.Search,
		Page:           params.Page,
		PageSize:       params.PageSize,
	}
}

// SF5 godoc
// @Summary SF5 promotion and proficiency report of a section
// @Tags Reports
// @Produce json
// @Param academicYearId query string true "Academic year"
// @Param sectionId query string true "Section"
// @Param q query string false "Search by learner or action taken"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports/sf5 [get]
func (h *ReportHandler) SF5(c *gin.Context) {
	page, err := h.reports.ListSF5(c.Request.Context(), reportFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// SF6 godoc
// @Summary SF6 promotion summary per year level
// @Tags Reports
// @Produce json
// @Param academicYearId query string true "Academic year"
// @Param yearLevelId query string false "Year level"
// @Param q query string false "Search by year level or category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports/sf6 [get]
func (h *ReportHandler) SF6(c *gin.Context) {
	page, err := h.reports.ListSF6(c.Request.Context(), reportFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// RequestExport godoc
// @Summary Queue a CSV export of a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param type path string true "Report type (sf5 or sf6)"
// @Param payload body models.ReportFilter true "Report filter"
// @Success 202 {object} response.Envelope
// @Router /reports/{type}/exports [post]
func (h *ReportHandler) RequestExport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.ReportFilter
	if !bindJSON(c, &filter) {
		return
	}
	reportType := models.ReportType(strings.ToLower(c.Param("type")))
	job, err := h.exports.Request(c.Request.Context(), reportType, filter, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Description Finished jobs carry a signed download URL.
// @Tags Reports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.exports.Status(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download an export through its signed token
// @Tags Reports
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/exports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	var size int64 = -1
	if info, statErr := download.File.Stat(); statErr == nil {
		size = info.Size()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, size, "text/csv; charset=utf-8", download.File, nil)
}
