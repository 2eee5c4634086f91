package listview

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxVisible is the number of numeric entries around the current page.
const DefaultMaxVisible = 5

// Ellipsis is the marker rendered between non-adjacent page numbers.
const Ellipsis = "…"

// PageItem is one control in a page window: a page number or an ellipsis.
type PageItem struct {
	Page     int
	Ellipsis bool
}

// Number builds a numeric window entry.
func Number(p int) PageItem { return PageItem{Page: p} }

// Gap builds an ellipsis window entry.
func Gap() PageItem { return PageItem{Ellipsis: true} }

func (i PageItem) String() string {
	if i.Ellipsis {
		return Ellipsis
	}
	return fmt.Sprintf("%d", i.Page)
}

// MarshalJSON encodes numbers as JSON numbers and gaps as "…".
func (i PageItem) MarshalJSON() ([]byte, error) {
	if i.Ellipsis {
		return json.Marshal(Ellipsis)
	}
	return json.Marshal(i.Page)
}

// UnmarshalJSON accepts either a number or the ellipsis string.
func (i *PageItem) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*i = Number(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("page item: %w", err)
	}
	if s != Ellipsis {
		return fmt.Errorf("page item: unexpected marker %q", s)
	}
	*i = Gap()
	return nil
}

// Window returns the page controls for current out of total pages. At most
// maxVisible consecutive numbers are emitted around current; the first and
// last pages stay reachable through leading and trailing gaps.
func Window(current, total, maxVisible int) []PageItem {
	if total <= 1 {
		return []PageItem{Number(1)}
	}
	if maxVisible < 1 {
		maxVisible = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	half := maxVisible / 2
	start := current - half
	if start < 1 {
		start = 1
	}
	end := start + maxVisible - 1
	if end > total {
		end = total
	}
	if end-start+1 < maxVisible {
		start = end - maxVisible + 1
		if start < 1 {
			start = 1
		}
	}

	items := make([]PageItem, 0, end-start+5)
	if start > 1 {
		items = append(items, Number(1), Gap())
	}
	for p := start; p <= end; p++ {
		items = append(items, Number(p))
	}
	if end < total {
		items = append(items, Gap(), Number(total))
	}
	return items
}
