package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-admin/internal/models"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
	"github.com/noah-isme/sis-admin/pkg/response"
)

// authorize runs after JWT and lets the request through when allow accepts
// the caller's role.
func authorize(allow func(models.UserRole) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if !allow(claims.Role) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this action"))
			return
		}
		c.Next()
	}
}

// RequireRoles admits the listed roles. SUPERADMIN is always admitted.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	allowed[models.RoleSuperAdmin] = struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return authorize(func(role models.UserRole) bool {
		_, ok := allowed[role]
		return ok
	})
}

// RequireManager admits roles that may mutate records and drive the
// enrollment selection.
func RequireManager() gin.HandlerFunc {
	return authorize(models.UserRole.CanManage)
}
