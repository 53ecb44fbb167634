package auth

import "golang.org/x/crypto/bcrypt"

// HashAPIKey produces a bcrypt digest suitable for AUTH_API_KEY_BCRYPT.
func HashAPIKey(key string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// compareHashedKey verifies a presented key against its bcrypt digest.
func compareHashedKey(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
