package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-intake/internal/config"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

func TestVerifyPlainKey(t *testing.T) {
	m := NewAPIKeyMiddleware(config.AuthConfig{APIKey: "s3cret"})

	require.NoError(t, m.Verify("s3cret"))
	for _, presented := range []string{"", "s3cre", "s3cret2", "S3CRET"} {
		err := m.Verify(presented)
		require.Error(t, err, presented)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAuth))
	}
}

func TestVerifyHashedKey(t *testing.T) {
	hashed, err := HashAPIKey("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	m := NewAPIKeyMiddleware(config.AuthConfig{APIKey: "ignored", APIKeyBcrypt: hashed})

	require.NoError(t, m.Verify("s3cret"))
	assert.Error(t, m.Verify("ignored"))
}

func TestVerifyFailsClosedWhenUnconfigured(t *testing.T) {
	m := NewAPIKeyMiddleware(config.AuthConfig{})

	for _, presented := range []string{"", "anything"} {
		err := m.Verify(presented)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAuth))
	}
}

func TestHandle(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Post("/protected", NewAPIKeyMiddleware(config.AuthConfig{APIKey: "k"}).Handle, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set(APIKeyHeader, "k")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
