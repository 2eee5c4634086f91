package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/noah-isme/sis-admin/pkg/listview"
)

// Cache key prefixes for the list collections. Mutations invalidate the
// prefix of every collection that embeds the changed record.
const (
	cacheStudents      = "list:students"
	cacheTeachers      = "list:teachers"
	cacheAcademicYears = "list:academic_years"
	cacheYearLevels    = "list:year_levels"
	cacheSections      = "list:sections"
	cacheCalendar      = "list:calendar"
	cacheSchedules     = "list:schedules"
	cacheEnrollments   = "list:enrollments"
)

// ListSettings bounds the paging parameters accepted by list endpoints.
type ListSettings struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxVisible      int
}

// DefaultListSettings mirrors the config defaults.
func DefaultListSettings() ListSettings {
	return ListSettings{DefaultPageSize: 10, MaxPageSize: 100, MaxVisible: listview.DefaultMaxVisible}
}

// Query turns raw request parameters into a list view query.
func (s ListSettings) Query(search string, page, pageSize int) listview.Query {
	if s.DefaultPageSize <= 0 {
		s = DefaultListSettings()
	}
	if pageSize <= 0 {
		pageSize = s.DefaultPageSize
	}
	if s.MaxPageSize > 0 && pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return listview.Query{
		Search:     strings.TrimSpace(search),
		Page:       page,
		PageSize:   pageSize,
		MaxVisible: s.MaxVisible,
	}
}

// cacheKey renders prefix:k1=v1:k2=v2 with keys sorted so equal filters
// share an entry. Names and values are query-escaped, so a value carrying
// ':' or '=' cannot impersonate another filter.
func cacheKey(prefix string, parts map[string]string) string {
	keys := make([]string, 0, len(parts))
	for k, v := range parts {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(prefix)
	for _, k := range keys {
		fmt.Fprintf(&b, ":%s=%s", url.QueryEscape(k), url.QueryEscape(parts[k]))
	}
	if len(keys) == 0 {
		b.WriteString(":all")
	}
	return b.String()
}

// loadCollection returns the collection from cache, falling back to load and
// writing the result back. Cache failures degrade to a direct load.
func loadCollection[T any](ctx context.Context, cache *CacheService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	var cached []T
	if cache.Lookup(ctx, key, &cached) {
		if cached == nil {
			cached = make([]T, 0)
		}
		return cached, nil
	}

	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}
	cache.Store(ctx, key, rows)
	return rows, nil
}
