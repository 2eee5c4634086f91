package listview

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(items []PageItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.String()
	}
	return out
}

func TestWindowScenarios(t *testing.T) {
	cases := []struct {
		name    string
		current int
		total   int
		max     int
		want    []string
	}{
		{"first page", 1, 10, 5, []string{"1", "2", "3", "4", "5", "…", "10"}},
		{"last page", 10, 10, 5, []string{"1", "…", "6", "7", "8", "9", "10"}},
		{"middle", 5, 10, 5, []string{"1", "…", "3", "4", "5", "6", "7", "…", "10"}},
		{"fits", 2, 4, 5, []string{"1", "2", "3", "4"}},
		{"single page", 1, 1, 5, []string{"1"}},
		{"no pages", 1, 0, 5, []string{"1"}},
		{"current out of range", 40, 10, 5, []string{"1", "…", "6", "7", "8", "9", "10"}},
		{"zero max visible", 3, 5, 0, []string{"1", "…", "3", "…", "5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := render(Window(tc.current, tc.total, tc.max))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("window mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWindowValidity(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for _, max := range []int{1, 3, 5, 7} {
			for current := 1; current <= total; current++ {
				items := Window(current, total, max)
				seen := map[int]bool{}
				hasCurrent := false
				for _, it := range items {
					if it.Ellipsis {
						continue
					}
					require.False(t, seen[it.Page], "duplicate %d in %v", it.Page, render(items))
					seen[it.Page] = true
					require.GreaterOrEqual(t, it.Page, 1)
					require.LessOrEqual(t, it.Page, total)
					if it.Page == current {
						hasCurrent = true
					}
				}
				assert.True(t, hasCurrent, "current %d missing from %v", current, render(items))
				if total > 1 {
					assert.True(t, seen[1] && seen[total], "bounds missing from %v", render(items))
				}
			}
		}
	}
}

func TestPageItemJSON(t *testing.T) {
	raw, err := json.Marshal(Window(1, 10, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3,4,5,"…",10]`, string(raw))

	var decoded []PageItem
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, Window(1, 10, 5), decoded)

	var bad PageItem
	assert.Error(t, json.Unmarshal([]byte(`"..."`), &bad))
}
