package listview

// Query carries the list state a table sends with every render.
type Query struct {
	Search     string
	Page       int
	PageSize   int
	MaxVisible int
}

// Page is one rendered slice of a filtered collection.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	Window     []PageItem
}

// Apply filters rows, clamps the requested page into range and slices it.
func Apply[T any](rows []T, q Query, fields Fields[T]) Page[T] {
	filtered := Filter(rows, q.Search, fields)
	size := clampSize(q.PageSize)
	total := TotalPages(len(filtered), size)
	current := clampPage(q.Page)
	if current > total {
		current = total
	}
	maxVisible := q.MaxVisible
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	return Page[T]{
		Items:      Paginate(filtered, current, size),
		Page:       current,
		PageSize:   size,
		TotalCount: len(filtered),
		TotalPages: total,
		Window:     Window(current, total, maxVisible),
	}
}
