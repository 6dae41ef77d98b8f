package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	v := NewVerifier("secret", "authenticated")
	userID := uuid.New()

	token, err := v.Sign(&Claims{
		Email: "pastor@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	assert.Equal(t, "pastor@example.org", claims.Email)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("secret", "authenticated")

	expired, err := v.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)

	otherKey, err := NewVerifier("other", "").Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  uuid.NewString(),
		Audience: jwt.ClaimStrings{"authenticated"},
	}})
	require.NoError(t, err)

	wrongAudience, err := v.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  uuid.NewString(),
		Audience: jwt.ClaimStrings{"anon"},
	}})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":        expired,
		"wrong key":      otherKey,
		"wrong audience": wrongAudience,
		"garbage":        "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}
