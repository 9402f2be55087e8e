package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/auth"
)

const (
	localsClaims = "claims"
	localsUserID = "user_id"
)

// Protected requires a valid bearer token. Missing and expired tokens are 401,
// anything else that fails verification is 403.
func Protected(verifier auth.Verifier) fiber.Handler {
	return protect(verifier, func(c *fiber.Ctx) (string, error) {
		return auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
	})
}

// ProtectedAllowQuery also accepts ?token=, for links a browser follows without headers.
func ProtectedAllowQuery(verifier auth.Verifier) fiber.Handler {
	return protect(verifier, func(c *fiber.Ctx) (string, error) {
		return auth.TokenFromRequest(c.Get(fiber.HeaderAuthorization), c.Query("token"))
	})
}

func protect(verifier auth.Verifier, extract func(*fiber.Ctx) (string, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extract(c)
		if err != nil {
			return err
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			return err
		}
		c.Locals(localsClaims, claims)
		c.Locals(localsUserID, claims.UserID())
		return c.Next()
	}
}

// RequireRole must run after Protected.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil || claims.Role != role {
			return apperrors.New(apperrors.ErrForbidden, "access denied")
		}
		return c.Next()
	}
}

func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(localsClaims).(*auth.Claims)
	return claims
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}
