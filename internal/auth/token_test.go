package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestVerifyToken(t *testing.T) {
	const secret = "operator-secret"
	now := time.Now()

	tests := []struct {
		name        string
		token       func(t *testing.T) string
		secret      string
		expectedErr error
	}{
		{
			name: "given valid token should verify",
			token: func(t *testing.T) string {
				token, err := IssueToken(secret, "ops", time.Hour, now)
				require.NoError(t, err)
				return token
			},
			secret: secret,
		},
		{
			name: "given expired token should fail",
			token: func(t *testing.T) string {
				token, err := IssueToken(secret, "ops", time.Minute, now.Add(-time.Hour))
				require.NoError(t, err)
				return token
			},
			secret:      secret,
			expectedErr: inErrors.ErrTokenInvalid,
		},
		{
			name: "given wrong secret should fail",
			token: func(t *testing.T) string {
				token, err := IssueToken("other", "ops", time.Hour, now)
				require.NoError(t, err)
				return token
			},
			secret:      secret,
			expectedErr: inErrors.ErrTokenInvalid,
		},
		{
			name: "given wrong audience should fail",
			token: func(t *testing.T) string {
				claims := jwt.RegisteredClaims{
					Issuer:    "storefront",
					Audience:  jwt.ClaimStrings{"someone-else"},
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				}
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
				require.NoError(t, err)
				return token
			},
			secret:      secret,
			expectedErr: inErrors.ErrTokenInvalid,
		},
		{
			name: "given unconfigured secret should fail",
			token: func(t *testing.T) string {
				token, err := IssueToken(secret, "ops", time.Hour, now)
				require.NoError(t, err)
				return token
			},
			secret:      "",
			expectedErr: inErrors.ErrTokenInvalid,
		},
		{
			name:        "given garbage should fail",
			token:       func(t *testing.T) string { return "not-a-token" },
			secret:      secret,
			expectedErr: inErrors.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := VerifyToken(context.Background(), tt.token(t), tt.secret)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, token)
				return
			}
			require.NoError(t, err)
			subject, err := token.Claims.GetSubject()
			require.NoError(t, err)
			assert.Equal(t, "ops", subject)
		})
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "ops", time.Hour, time.Now())
	assert.Error(t, err)
}
