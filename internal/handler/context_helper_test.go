package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListQuery(t *testing.T) {
	cases := []struct {
		url  string
		want listParams
	}{
		{"/x", listParams{}},
		{"/x?q=%20dela%20cruz%20&page=3&limit=25", listParams{Search: "dela cruz", Page: 3, PageSize: 25}},
		{"/x?search=ana", listParams{Search: "ana"}},
		{"/x?q=first&search=second", listParams{Search: "first"}},
		{"/x?page=abc&limit=-", listParams{}},
		{"/x?page=-2&limit=0", listParams{Page: -2}},
	}
	for _, tc := range cases {
		c, _ := newGinContext(http.MethodGet, tc.url, nil)
		assert.Equal(t, tc.want, listQuery(c), tc.url)
	}
}

func TestBoolQuery(t *testing.T) {
	c, _ := newGinContext(http.MethodGet, "/x?a=true&b=0&c=maybe", nil)

	if assert.NotNil(t, boolQuery(c, "a")) {
		assert.True(t, *boolQuery(c, "a"))
	}
	if assert.NotNil(t, boolQuery(c, "b")) {
		assert.False(t, *boolQuery(c, "b"))
	}
	assert.Nil(t, boolQuery(c, "c"))
	assert.Nil(t, boolQuery(c, "missing"))
}
