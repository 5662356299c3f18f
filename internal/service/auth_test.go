package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_server/internal/config"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthFixture() AuthService {
	cfg := config.JWTConfig{Secret: testSecret, Issuer: "chat-server"}
	return NewAuthService(cfg, logger.New("error"))
}

func TestValidateTokenReturnsPrincipal(t *testing.T) {
	svc := newAuthFixture()

	token := signToken(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": "chat-server",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	principal, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", principal)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newAuthFixture()

	token := signToken(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": "chat-server",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	_, err := svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateTokenWrongSignature(t *testing.T) {
	svc := newAuthFixture()

	token := signToken(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": "chat-server",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "other-secret")

	_, err := svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	svc := newAuthFixture()

	token := signToken(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	_, err := svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateTokenMissingSubject(t *testing.T) {
	svc := newAuthFixture()

	token := signToken(t, jwt.MapClaims{
		"iss": "chat-server",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	_, err := svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
