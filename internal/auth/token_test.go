// ABOUTME: Unit tests for JWT token verification and generation
// ABOUTME: Tests valid tokens, invalid tokens, expired tokens and claim requirements

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-jwt-signing")

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	token, err := verifier.Generate("connector-1", time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "connector-1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	otherSecret, err := NewJWTVerifier([]byte("different-secret")).Generate("connector-1", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "connector-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: "connector-1",
	}).SignedString(testSecret)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "connector-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "wrong secret", token: otherSecret},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "missing expiry", token: noExpiry},
		{name: "unexpected algorithm", token: hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	verifier.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := verifier.Generate("connector-1", time.Hour)
	require.NoError(t, err)

	verifier.now = time.Now
	_, err = verifier.Verify(token)
	assert.True(t, errors.Is(err, ErrExpiredToken), "got %v", err)
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	_, err := verifier.Generate("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingClaim)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)
}
