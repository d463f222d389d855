package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pedcare/pkg/domain-errors"
	"pedcare/pkg/requestcontext"
)

var jwtService = NewJWTService("test-signing-key", "pedcare")

var owner = requestcontext.Principal{
	UserID:   "owner-1",
	Email:    "owner@example.com",
	FullName: "Clinic Owner",
	Role:     "owner",
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(owner, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, owner, claims.Principal())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(owner, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := NewJWTService("other-key", "pedcare").GenerateAccessToken(owner, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExternalTokenWithoutIssuer(t *testing.T) {
	// tokens minted by the product's auth component carry no iss or role
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "patient-1",
		"email":      "parent@example.com",
		"patient_id": "P001",
	})
	token, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	open := NewJWTService("test-signing-key", "")
	claims, err := open.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "patient", claims.Role)
	assert.Equal(t, "P001", claims.Principal().PatientID)

	_, err = jwtService.ValidateToken(token)
	assert.Error(t, err, "issuer is enforced when configured")
}

func Test_ValidateToken_UnknownRole(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(requestcontext.Principal{UserID: "x", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token payload"))
}
