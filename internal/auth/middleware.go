package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/config"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// APIKeyHeader carries the shared secret on protected requests.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware checks the caller's shared secret. With no secret
// configured every protected request is rejected.
type APIKeyMiddleware struct {
	key    []byte
	hashed string
}

// NewAPIKeyMiddleware constructs middleware. A bcrypt digest, when present,
// takes precedence over the plaintext key.
func NewAPIKeyMiddleware(cfg config.AuthConfig) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: []byte(cfg.APIKey), hashed: cfg.APIKeyBcrypt}
}

// Handle enforces the credential for protected routes.
func (m *APIKeyMiddleware) Handle(c *fiber.Ctx) error {
	if err := m.Verify(c.Get(APIKeyHeader)); err != nil {
		return err
	}
	return c.Next()
}

// Verify reports whether presented matches the configured secret.
func (m *APIKeyMiddleware) Verify(presented string) error {
	switch {
	case m.hashed == "" && len(m.key) == 0:
		return apperrors.NewUnauthorized("API key not configured")
	case presented == "":
		return apperrors.NewUnauthorized("missing API key")
	case m.hashed != "":
		if compareHashedKey(m.hashed, presented) != nil {
			return apperrors.NewUnauthorized("API key invalid")
		}
	default:
		if subtle.ConstantTimeCompare([]byte(presented), m.key) != 1 {
			return apperrors.NewUnauthorized("API key invalid")
		}
	}
	return nil
}
