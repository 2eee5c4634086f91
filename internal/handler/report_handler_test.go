package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/middleware"
	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type reportServiceMock struct {
	lastFilter models.ReportFilter
	sf5        []models.SF5Row
	err        error
}

func (m *reportServiceMock) ListSF5(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF5Row], error) {
	m.lastFilter = filter
	if m.err != nil {
		return listview.Page[models.SF5Row]{}, m.err
	}
	return listview.Apply(m.sf5, listview.Query{Page: filter.Page, PageSize: filter.PageSize}, nil), nil
}

func (m *reportServiceMock) ListSF6(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF6Row], error) {
	m.lastFilter = filter
	return listview.Apply([]models.SF6Row{}, listview.Query{}, nil), m.err
}

type exportServiceMock struct {
	requestType models.ReportType
	requestBy   string
	job         *models.ExportJob
	err         error
	statusRole  models.UserRole
	download    *service.ExportDownload
}

func (m *exportServiceMock) Request(ctx context.Context, reportType models.ReportType, filter models.ReportFilter, actorID string) (*models.ExportJob, error) {
	m.requestType = reportType
	m.requestBy = actorID
	return m.job, m.err
}

func (m *exportServiceMock) Status(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJob, error) {
	m.statusRole = role
	return m.job, m.err
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asAdmin(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestReportHandlerSF5PassesFilterAndPaginates(t *testing.T) {
	rows := make([]models.SF5Row, 12)
	mockSvc := &reportServiceMock{sf5: rows}
	handler := NewReportHandler(mockSvc, &exportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/reports/sf5?academicYearId=ay-1&sectionId=sec-1&q=pro&page=2&limit=5", nil)
	handler.SF5(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportFilter{AcademicYearID: "ay-1", SectionID: "sec-1", Search: "pro", Page: 2, PageSize: 5}, mockSvc.lastFilter)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	assert.Equal(t, 12, env.Pagination.TotalCount)
}

func TestReportHandlerSF6ValidationError(t *testing.T) {
	mockSvc := &reportServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "academic_year_id is required")}
	handler := NewReportHandler(mockSvc, &exportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/reports/sf6", nil)
	handler.SF6(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerRequestExport(t *testing.T) {
	exports := &exportServiceMock{job: &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued}}
	handler := NewReportHandler(&reportServiceMock{}, exports)

	payload, _ := json.Marshal(models.ReportFilter{AcademicYearID: "ay-1", SectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/reports/SF5/exports", payload)
	c.Params = gin.Params{{Key: "type", Value: "SF5"}}
	asAdmin(c)

	handler.RequestExport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportTypeSF5, exports.requestType)
	assert.Equal(t, "admin-1", exports.requestBy)
}

func TestReportHandlerRequestExportNeedsUser(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{}, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/reports/sf5/exports", []byte(`{}`))
	handler.RequestExport(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerExportStatus(t *testing.T) {
	exports := &exportServiceMock{job: &models.ExportJob{ID: "job-1", Status: models.ExportStatusFinished, DownloadURL: "/api/v1/reports/exports/download/tok"}}
	handler := NewReportHandler(&reportServiceMock{}, exports)

	c, w := newGinContext(http.MethodGet, "/reports/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	asAdmin(c)

	handler.ExportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, exports.statusRole)
	assert.Contains(t, w.Body.String(), "download/tok")
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "sf5.csv")
	require.NoError(t, os.WriteFile(name, []byte("lrn,name\n1,Ana\n"), 0o600))
	file, err := os.Open(name)
	require.NoError(t, err)

	exports := &exportServiceMock{download: &service.ExportDownload{File: file, Filename: "sf5.csv", ExpiresAt: time.Now().Add(time.Hour)}}
	handler := NewReportHandler(&reportServiceMock{}, exports)

	c, w := newGinContext(http.MethodGet, "/reports/exports/download/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="sf5.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "lrn,name\n1,Ana\n", w.Body.String())
}

func TestReportHandlerDownloadForbidden(t *testing.T) {
	exports := &exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "invalid download token")}
	handler := NewReportHandler(&reportServiceMock{}, exports)

	c, w := newGinContext(http.MethodGet, "/reports/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
