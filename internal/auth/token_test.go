package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	role := domain.UserRoleManager
	tokenStr, expiresAt, err := tm.GenerateToken("u-1", domain.SubjectTypeOperator, "t1", &role)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeOperator, claims.Subject)
	assert.Equal(t, "t1", claims.TenantID)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.UserRoleManager, *claims.Role)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tokenStr, _, err := NewTokenManager("secret-a", 60).GenerateToken("u-1", domain.SubjectTypeOperator, "t1", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestVerifyOpsKey(t *testing.T) {
	hash, err := HashOpsKey("super-key", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, VerifyOpsKey(hash, "super-key"))
	assert.Error(t, VerifyOpsKey(hash, "wrong-key"))
	assert.Error(t, VerifyOpsKey("", "super-key"))
}
