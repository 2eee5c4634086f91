package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type studentServiceMock struct {
	lastFilter  models.StudentFilter
	createCalls int
	deleteErr   error
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) (listview.Page[models.Student], error) {
	m.lastFilter = filter
	rows := []models.Student{{ID: "s1", LRN: "100"}, {ID: "s2", LRN: "200"}}
	return listview.Apply(rows, listview.Query{Page: filter.Page, PageSize: filter.PageSize}, nil), nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (m *studentServiceMock) Create(ctx context.Context, req service.StudentRequest) (*models.Student, error) {
	m.createCalls++
	return &models.Student{ID: "s3", LRN: req.LRN}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id string, req service.StudentRequest) (*models.Student, error) {
	return &models.Student{ID: id, LRN: req.LRN}, nil
}

func (m *studentServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func TestStudentHandlerListEnvelope(t *testing.T) {
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students?search=ana&gender=f&limit=1", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", mockSvc.lastFilter.Search)
	assert.Equal(t, "F", mockSvc.lastFilter.Gender)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.PageSize)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.Len(t, env.Pagination.Window, 2)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestStudentHandlerCreateInvalidPayload(t *testing.T) {
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/students", []byte(`{"lrn":`))
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.createCalls)
}

func TestStudentHandlerCreate(t *testing.T) {
	handler := NewStudentHandler(&studentServiceMock{})

	body := []byte(`{"lrn":"123456789012","first_name":"Ana","last_name":"Cruz","gender":"F","birth_date":"2012-03-04T00:00:00Z"}`)
	c, w := newGinContext(http.MethodPost, "/students", body)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"lrn":"123456789012"`)
}

func TestStudentHandlerDeleteNotFound(t *testing.T) {
	handler := NewStudentHandler(&studentServiceMock{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "student not found")})

	c, w := newGinContext(http.MethodDelete, "/students/x", nil)
	handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
