package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/charmntreats/internal/utils"
)

const claimsContextKey = "currentClaims"

// AuthMiddleware validates JWT tokens and loads the caller's claims into
// context. When roles are given the token must carry one of them.
func AuthMiddleware(secret string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
		}

		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireCustomer admits storefront customers.
func RequireCustomer(secret string) fiber.Handler {
	return AuthMiddleware(secret, utils.RoleCustomer)
}

// RequireAdmin admits the store owner.
func RequireAdmin(secret string) fiber.Handler {
	return AuthMiddleware(secret, utils.RoleAdmin)
}

// GetCurrentEmail extracts the authenticated email from context.
func GetCurrentEmail(c *fiber.Ctx) (string, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	if !ok || claims == nil {
		return "", false
	}
	return claims.Email, true
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
