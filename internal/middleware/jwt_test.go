package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/service"
	"github.com/noah-isme/sis-admin/internal/session"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

type stubValidator struct {
	claims      *models.JWTClaims
	err         error
	invalidated []*service.TokenError
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, s.err
	}
	return s.claims, nil
}

func (s *stubValidator) InvalidateSession(ctx context.Context, err *service.TokenError) {
	s.invalidated = append(s.invalidated, err)
}

func newProtectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", JWT(v))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/me", func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsValidToken(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}}
	w := serve(newProtectedRouter(v), "Bearer good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	v := &stubValidator{}
	r := newProtectedRouter(v)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token good").Code)
	assert.Empty(t, v.invalidated)
}

func TestJWTInvalidatesSessionOfExpiredToken(t *testing.T) {
	tokenErr := &service.TokenError{
		Err:     appErrors.Clone(appErrors.ErrTokenExpired, "session expired"),
		Subject: "user-1",
		Reason:  session.ReasonTokenExpired,
	}
	v := &stubValidator{err: tokenErr}
	w := serve(newProtectedRouter(v), "Bearer stale")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	require.Len(t, v.invalidated, 1)
	assert.Equal(t, "user-1", v.invalidated[0].Subject)
}

func TestRequireRoles(t *testing.T) {
	teacher := &stubValidator{claims: &models.JWTClaims{UserID: "user-2", Role: models.RoleTeacher}}
	super := &stubValidator{claims: &models.JWTClaims{UserID: "user-3", Role: models.RoleSuperAdmin}}

	assert.Equal(t, http.StatusForbidden, serve(newProtectedRouter(teacher, models.RoleAdmin), "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(newProtectedRouter(teacher, models.RoleTeacher), "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(newProtectedRouter(super, models.RoleRegistrar), "Bearer good").Code)
}

func TestRequireManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[models.UserRole]int{
		models.RoleAdmin:      http.StatusOK,
		models.RoleSuperAdmin: http.StatusOK,
		models.RoleRegistrar:  http.StatusForbidden,
		models.RoleTeacher:    http.StatusForbidden,
	}
	for role, want := range cases {
		v := &stubValidator{claims: &models.JWTClaims{UserID: "u", Role: role}}
		r := gin.New()
		r.GET("/me", JWT(v), RequireManager(), func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, want, serve(r, "Bearer good").Code, role)
	}
}

func TestRequireManagerWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireManager(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}
