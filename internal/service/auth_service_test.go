package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sis-admin/internal/models"
	"github.com/noah-isme/sis-admin/internal/session"
	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

type invalidation struct {
	userID string
	reason session.Reason
}

type recordingSessions struct {
	calls []invalidation
}

func (r *recordingSessions) Invalidate(ctx context.Context, userID string, reason session.Reason) int {
	r.calls = append(r.calls, invalidation{userID: userID, reason: reason})
	return 0
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *mockAuthRepo, *recordingSessions) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:           "user-1",
		Email:        "registrar@school.test",
		PasswordHash: string(hash),
		FullName:     "Ana Santos",
		Role:         models.RoleAdmin,
		Active:       active,
	}}
	sessions := &recordingSessions{}
	svc := NewAuthService(repo, sessions, nil, nil, AuthConfig{AccessTokenSecret: "jwt-secret", AccessTokenExpiry: time.Hour, Issuer: "sis-admin"})
	return svc, repo, sessions
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "registrar@school.test", Password: "s3cret!"})
	require.NoError(t, err)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sis-admin", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _, _ := newAuthFixture(t, true)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "registrar@school.test", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@school.test", Password: "s3cret!"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	inactive, _, _ := newAuthFixture(t, false)
	_, err = inactive.Login(ctx, models.LoginRequest{Email: "registrar@school.test", Password: "s3cret!"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceExpiredTokenCarriesSubject(t *testing.T) {
	svc, _, sessions := newAuthFixture(t, true)
	issued := time.Now().Add(-3 * time.Hour)
	svc.now = func() time.Time { return issued }
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "registrar@school.test", Password: "s3cret!"})
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTokenExpired))

	var tokenErr *TokenError
	require.True(t, errors.As(err, &tokenErr))
	assert.Equal(t, "user-1", tokenErr.Subject)
	assert.Equal(t, session.ReasonTokenExpired, tokenErr.Reason)

	svc.InvalidateSession(context.Background(), tokenErr)
	require.Len(t, sessions.calls, 1)
	assert.Equal(t, invalidation{userID: "user-1", reason: session.ReasonTokenExpired}, sessions.calls[0])
}

func TestAuthServiceForgedTokenHasNoSubject(t *testing.T) {
	svc, _, sessions := newAuthFixture(t, true)
	forger := NewAuthService(&mockAuthRepo{user: &models.User{}}, sessions, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour, Issuer: "sis-admin"})
	token, err := forger.generateAccessToken(&models.User{ID: "user-1", Role: models.RoleSuperAdmin}, time.Now())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	var tokenErr *TokenError
	require.True(t, errors.As(err, &tokenErr))
	assert.Empty(t, tokenErr.Subject)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	svc.InvalidateSession(context.Background(), tokenErr)
	assert.Empty(t, sessions.calls)

	_, err = svc.ValidateToken("garbage")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogout(t *testing.T) {
	svc, _, sessions := newAuthFixture(t, true)

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	require.Len(t, sessions.calls, 1)
	assert.Equal(t, session.ReasonLogout, sessions.calls[0].reason)

	assert.True(t, errors.Is(svc.Logout(context.Background(), ""), appErrors.ErrUnauthorized))
}
