package models

import "github.com/noah-isme/sis-admin/pkg/listview"

// Pagination is the page metadata of a list response. Window holds page
// numbers with "…" marking skipped ranges.
type Pagination struct {
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int                 `json:"total_count"`
	TotalPages int                 `json:"total_pages"`
	Window     []listview.PageItem `json:"window"`
}

// PaginationOf lifts list view metadata into the response contract.
func PaginationOf[T any](page listview.Page[T]) *Pagination {
	return &Pagination{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
		Window:     page.Window,
	}
}
