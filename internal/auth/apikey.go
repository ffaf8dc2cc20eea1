package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// VerifyOpsKey checks a presented ops API key against the configured bcrypt
// hash. The plaintext key is never stored anywhere on this side.
func VerifyOpsKey(hash, presented string) error {
	if hash == "" {
		return errors.New("ops key not configured")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented))
}

// HashOpsKey produces the bcrypt hash to place in AUTH_OPS_KEY_HASH.
func HashOpsKey(key string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
