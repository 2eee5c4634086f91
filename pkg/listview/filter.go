package listview

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fields projects a row onto the strings searched by Filter.
type Fields[T any] func(T) []string

// Filter keeps the rows for which at least one projected field contains
// query, compared after Unicode case folding. Order is preserved and the
// input slice is never modified. An empty query keeps every row.
func Filter[T any](rows []T, query string, fields Fields[T]) []T {
	needle := FoldQuery(query)
	out := make([]T, 0, len(rows))
	if needle == "" {
		return append(out, rows...)
	}
	if fields == nil {
		return out
	}
	for _, row := range rows {
		if Matches(fields(row), needle) {
			out = append(out, row)
		}
	}
	return out
}

// Matches reports whether any value contains needle, as returned by
// FoldQuery.
func Matches(values []string, needle string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if strings.Contains(Fold(v), needle) {
			return true
		}
	}
	return false
}

// Fold applies full Unicode case folding and decomposes the result to NFD,
// so precomposed and decomposed accents compare equal.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return norm.NFD.String(cases.Fold().String(s))
}

// FoldQuery folds a search query rune by rune without reordering combining
// marks, so the folding of q is always a prefix of the folding of q+x and a
// longer query can only narrow a search.
func FoldQuery(q string) string {
	if q == "" {
		return ""
	}
	folder := cases.Fold()
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		b.WriteString(norm.NFD.String(folder.String(string(r))))
	}
	return b.String()
}
