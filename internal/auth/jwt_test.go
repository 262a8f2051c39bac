package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	customerID := uuid.New()

	token, err := GenerateToken(customerID, "alice@test.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, customerID, claims.CustomerID)
	assert.Equal(t, "alice@test.com", claims.Email)
}

func TestValidateToken_Rejects(t *testing.T) {
	customerID := uuid.New()

	valid, err := GenerateToken(customerID, "alice@test.com", testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(customerID, "alice@test.com", testSecret, -time.Hour)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   customerID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{name: "expired", token: expired, secret: testSecret, wantErrIs: jwt.ErrTokenExpired},
		{name: "wrong secret", token: valid, secret: "wrong-secret", wantErrIs: jwt.ErrTokenSignatureInvalid},
		{name: "malformed", token: "not.a.valid.jwt", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{name: "empty", token: "", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{name: "wrong issuer", token: foreign, secret: testSecret, wantErrIs: jwt.ErrTokenInvalidIssuer},
		{name: "subject not a uuid", token: badSubject, secret: testSecret},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.token, tc.secret)
			require.Error(t, err)
			if tc.wantErrIs != nil {
				assert.ErrorIs(t, err, tc.wantErrIs)
			}
		})
	}
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, testSecret)
	require.Error(t, err)
}

func TestCustomerIDContext(t *testing.T) {
	_, ok := CustomerIDFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := CustomerIDFromContext(ContextWithCustomerID(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}
