package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/middleware"
	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/response"
)

// listParams carries the query parameters shared by every list endpoint.
type listParams struct {
	Search   string
	Page     int
	PageSize int
}

// listQuery reads q (or the older search alias), page and limit. Malformed
// numbers fall back to zero and are clamped by the list settings.
func listQuery(c *gin.Context) listParams {
	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}
	params := listParams{Search: strings.TrimSpace(search)}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.Query("limit")); err == nil {
		params.PageSize = size
	}
	return params
}

func boolQuery(c *gin.Context, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return false
	}
	return true
}
