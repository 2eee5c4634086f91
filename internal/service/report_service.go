package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/export"
	"github.com/noah-isme/sis-admin/pkg/listview"
)

type reportRepository interface {
	ListSF5(ctx context.Context, filter models.ReportFilter) ([]models.SF5Row, error)
	ListSF6(ctx context.Context, filter models.ReportFilter) ([]models.SF6Row, error)
}

var (
	sf5Columns = []export.Column{
		{Key: "lrn", Title: "LRN"},
		{Key: "student_name", Title: "Learner's Name"},
		{Key: "sex", Title: "Sex"},
		{Key: "section", Title: "Section"},
		{Key: "general_average", Title: "General Average"},
		{Key: "action_taken", Title: "Action Taken"},
		{Key: "incomplete_subjects", Title: "Incomplete Subjects"},
	}
	sf6Columns = []export.Column{
		{Key: "year_level", Title: "Grade Level"},
		{Key: "category", Title: "Category"},
		{Key: "male", Title: "Male"},
		{Key: "female", Title: "Female"},
		{Key: "total", Title: "Total"},
	}
)

// ReportService serves the generated school form views.
type ReportService struct {
	repo reportRepository
	list ListSettings
}

// NewReportService constructs the report service.
func NewReportService(repo reportRepository, list ListSettings) *ReportService {
	return &ReportService{repo: repo, list: list}
}

// Validate checks that filter carries the scope a report type requires.
func (s *ReportService) Validate(reportType models.ReportType, filter models.ReportFilter) error {
	if !reportType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if strings.TrimSpace(filter.AcademicYearID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "academic_year_id is required")
	}
	if reportType == models.ReportTypeSF5 && strings.TrimSpace(filter.SectionID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "section_id is required for SF5")
	}
	return nil
}

// ListSF5 returns one page of a section's SF5.
func (s *ReportService) ListSF5(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF5Row], error) {
	rows, err := s.sf5(ctx, filter)
	if err != nil {
		return listview.Page[models.SF5Row]{}, err
	}
	return listview.Apply(rows, s.list.Query(filter.Search, filter.Page, filter.PageSize), models.SF5Row.SearchFields), nil
}

// ListSF6 returns one page of the SF6 summary.
func (s *ReportService) ListSF6(ctx context.Context, filter models.ReportFilter) (listview.Page[models.SF6Row], error) {
	rows, err := s.sf6(ctx, filter)
	if err != nil {
		return listview.Page[models.SF6Row]{}, err
	}
	return listview.Apply(rows, s.list.Query(filter.Search, filter.Page, filter.PageSize), models.SF6Row.SearchFields), nil
}

// Dataset builds the export table of a report, honouring the search term but
// not pagination.
func (s *ReportService) Dataset(ctx context.Context, reportType models.ReportType, filter models.ReportFilter) (export.Dataset, error) {
	switch reportType {
	case models.ReportTypeSF5:
		rows, err := s.sf5(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		rows = listview.Filter(rows, filter.Search, models.SF5Row.SearchFields)
		data := export.Dataset{Columns: sf5Columns, Rows: make([]map[string]string, 0, len(rows))}
		for _, row := range rows {
			data.Rows = append(data.Rows, map[string]string{
				"lrn":                 row.LRN,
				"student_name":        row.StudentName,
				"sex":                 row.Sex,
				"section":             row.SectionName,
				"general_average":     formatAverage(row.GeneralAverage),
				"action_taken":        row.ActionTaken,
				"incomplete_subjects": derefString(row.IncompleteSubjects),
			})
		}
		return data, nil
	case models.ReportTypeSF6:
		rows, err := s.sf6(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		rows = listview.Filter(rows, filter.Search, models.SF6Row.SearchFields)
		data := export.Dataset{Columns: sf6Columns, Rows: make([]map[string]string, 0, len(rows))}
		for _, row := range rows {
			data.Rows = append(data.Rows, map[string]string{
				"year_level": row.YearLevelName,
				"category":   row.Category,
				"male":       strconv.Itoa(row.MaleCount),
				"female":     strconv.Itoa(row.FemaleCount),
				"total":      strconv.Itoa(row.TotalCount),
			})
		}
		return data, nil
	default:
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
}

func (s *ReportService) sf5(ctx context.Context, filter models.ReportFilter) ([]models.SF5Row, error) {
	if err := s.Validate(models.ReportTypeSF5, filter); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSF5(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load SF5 rows")
	}
	return rows, nil
}

func (s *ReportService) sf6(ctx context.Context, filter models.ReportFilter) ([]models.SF6Row, error) {
	if err := s.Validate(models.ReportTypeSF6, filter); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSF6(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load SF6 rows")
	}
	return rows, nil
}

func formatAverage(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
