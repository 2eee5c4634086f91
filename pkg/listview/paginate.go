package listview

// Paginate returns the 1-indexed page of rows. page < 1 is treated as 1
// and pageSize <= 0 as 1. A page past the end yields an empty slice.
func Paginate[T any](rows []T, page, pageSize int) []T {
	page, pageSize = clampPage(page), clampSize(pageSize)
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []T{}
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-start)
	copy(out, rows[start:end])
	return out
}

// TotalPages returns ceil(count/pageSize), never less than 1 so an empty
// list still reads as "page 1 of 1".
func TotalPages(count, pageSize int) int {
	pageSize = clampSize(pageSize)
	if count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func clampSize(size int) int {
	if size < 1 {
		return 1
	}
	return size
}
