package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

type stubReportRepo struct {
	sf5 []models.SF5Row
	sf6 []models.SF6Row
	err error
}

func (s stubReportRepo) ListSF5(ctx context.Context, filter models.ReportFilter) ([]models.SF5Row, error) {
	return s.sf5, s.err
}

func (s stubReportRepo) ListSF6(ctx context.Context, filter models.ReportFilter) ([]models.SF6Row, error) {
	return s.sf6, s.err
}

func sampleReportRepo() stubReportRepo {
	avg := 91.456
	incomplete := "Filipino"
	return stubReportRepo{
		sf5: []models.SF5Row{
			{ID: "1", LRN: "100000000001", StudentName: "Santos, Ana", Sex: "F", SectionName: "Rizal", GeneralAverage: &avg, ActionTaken: "PROMOTED"},
			{ID: "2", LRN: "100000000002", StudentName: "Cruz, Jose", Sex: "M", SectionName: "Rizal", ActionTaken: "CONDITIONAL", IncompleteSubjects: &incomplete},
		},
		sf6: []models.SF6Row{
			{ID: "a", YearLevelName: "Grade 7", Category: "PROMOTED", MaleCount: 10, FemaleCount: 12, TotalCount: 22},
		},
	}
}

func TestReportServiceValidate(t *testing.T) {
	svc := NewReportService(sampleReportRepo(), DefaultListSettings())

	assert.NoError(t, svc.Validate(models.ReportTypeSF5, models.ReportFilter{AcademicYearID: "ay", SectionID: "sec"}))
	assert.NoError(t, svc.Validate(models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay"}))

	for name, tc := range map[string]struct {
		reportType models.ReportType
		filter     models.ReportFilter
	}{
		"unknown type":      {models.ReportType("sf9"), models.ReportFilter{AcademicYearID: "ay"}},
		"missing year":      {models.ReportTypeSF6, models.ReportFilter{}},
		"sf5 needs section": {models.ReportTypeSF5, models.ReportFilter{AcademicYearID: "ay"}},
	} {
		t.Run(name, func(t *testing.T) {
			err := svc.Validate(tc.reportType, tc.filter)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestReportServiceListSF5Search(t *testing.T) {
	svc := NewReportService(sampleReportRepo(), DefaultListSettings())

	page, err := svc.ListSF5(context.Background(), models.ReportFilter{AcademicYearID: "ay", SectionID: "sec", Search: "conditional"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2", page.Items[0].ID)
}

func TestReportServiceDataset(t *testing.T) {
	svc := NewReportService(sampleReportRepo(), DefaultListSettings())

	data, err := svc.Dataset(context.Background(), models.ReportTypeSF5, models.ReportFilter{AcademicYearID: "ay", SectionID: "sec"})
	require.NoError(t, err)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "91.46", data.Rows[0]["general_average"])
	assert.Equal(t, "", data.Rows[1]["general_average"])
	assert.Equal(t, "Filipino", data.Rows[1]["incomplete_subjects"])

	data, err = svc.Dataset(context.Background(), models.ReportTypeSF6, models.ReportFilter{AcademicYearID: "ay"})
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "22", data.Rows[0]["total"])
	assert.Len(t, data.Columns, 5)
}

func TestReportServiceRepositoryFailure(t *testing.T) {
	svc := NewReportService(stubReportRepo{err: errors.New("db down")}, DefaultListSettings())

	_, err := svc.ListSF6(context.Background(), models.ReportFilter{AcademicYearID: "ay"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
