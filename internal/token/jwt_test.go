package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verifid/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", 15*time.Minute)

	t.Run("round-trips a valid token", func(t *testing.T) {
		signed, err := svc.GenerateToken("a1b2c3d4-e5f6-7890-abcd-ef1234567890")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(signed)
		require.NoError(t, err)
		assert.Equal(t, "a1b2c3d4-e5f6-7890-abcd-ef1234567890", claims.UserID)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := svc.ValidateToken("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewService("test-signing-key", -1*time.Minute)
		signed, err := expired.GenerateToken("a1b2c3d4-e5f6-7890-abcd-ef1234567890")
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token signed with a different key", func(t *testing.T) {
		other := NewService("other-key", 15*time.Minute)
		signed, err := other.GenerateToken("a1b2c3d4-e5f6-7890-abcd-ef1234567890")
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects unexpected signing algorithm", func(t *testing.T) {
		// alg=none tokens must never validate
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "x"})
		signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token without user_id claim", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		signed, err := tok.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
