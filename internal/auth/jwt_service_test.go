package auth

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/welltrack/welltrack-api/internal/models"
)

func testUser() *models.User {
	u := &models.User{Email: "alice@example.com"}
	u.ID = "user-123"
	return u
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestCreateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2025, 12, 8, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "welltrack",
		Audience:       "welltrack-web",
		AccessTokenTTL: 60 * time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	roles := []string{models.RoleUser, models.RoleAdmin}
	token, err := svc.CreateAccessToken(testUser(), roles)
	require.NoError(t, err)
	roles[0] = "mutated"

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID())
	require.Equal(t, "alice@example.com", claims.UniqueName)
	require.Equal(t, []string{"User", "Admin"}, claims.Roles)
	require.True(t, claims.HasRole(models.RoleAdmin))
	require.NotEmpty(t, claims.ID)
	require.Equal(t, jwt.ClaimStrings{"welltrack-web"}, claims.Audience)
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))

	other, err := svc.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)
	otherClaims, err := svc.ValidateAccessToken(other)
	require.NoError(t, err)
	require.NotEqual(t, claims.ID, otherClaims.ID, "every token carries a unique jti")
}

func TestCreateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.CreateAccessToken(nil, nil)
	require.Error(t, err)
	_, err = svc.CreateAccessToken(&models.User{}, nil)
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret"})
	require.NoError(t, err)
	token, err := issuer.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenRejectsWrongAudience(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret", Audience: "mobile"})
	require.NoError(t, err)
	token, err := issuer.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "secret", Audience: "web"})
	require.NoError(t, err)
	_, err = verifier.ValidateAccessToken(token)
	require.True(t, errors.Is(err, jwt.ErrTokenInvalidAudience))
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2025, 12, 8, 14, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestCreateRefreshToken(t *testing.T) {
	current := time.Date(2025, 12, 8, 9, 30, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: func() time.Time { return current }})
	require.NoError(t, err)

	token, err := svc.CreateRefreshToken("203.0.113.7", "user-123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token.Token)
	require.NoError(t, err)
	require.Len(t, raw, RefreshTokenBytes)
	require.Equal(t, "user-123", token.UserID)
	require.Equal(t, "203.0.113.7", token.CreatedByIP)
	require.True(t, token.CreatedAt.Equal(current))
	require.True(t, token.ExpiresAt.Equal(current.Add(30*24*time.Hour)))
	require.Nil(t, token.RevokedAt)
	require.Empty(t, token.ID, "refresh tokens are not persisted by the issuer")

	second, err := svc.CreateRefreshToken("203.0.113.7", "user-123")
	require.NoError(t, err)
	require.NotEqual(t, token.Token, second.Token)
}
