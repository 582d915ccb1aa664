package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// ResourceID is the expected audience for token validation
	ResourceID string
	// ResourceMetadataURL is advertised in the WWW-Authenticate header of a 401
	ResourceMetadataURL string
	// TokenValidator is a function that validates the bearer token
	// It should return an error if the token is invalid
	TokenValidator func(token string, audience []string) error
	// JWTAuthenticator for JWT token validation (optional, takes precedence over TokenValidator)
	JWTAuthenticator *utils.JwtAuthenticator
	// SkipWellKnown determines if .well-known endpoints should bypass auth
	SkipWellKnown bool
}

// DefaultAuthConfig rejects every token until a validator or JWT authenticator is configured
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		SkipWellKnown: true,
		TokenValidator: func(token string, audience []string) error {
			return fiber.NewError(fiber.StatusUnauthorized, "token validation is not configured")
		},
	}
}

// AuthMiddleware returns a Fiber middleware for Bearer token authentication
func AuthMiddleware(config ...AuthConfig) fiber.Handler {
	cfg := DefaultAuthConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.TokenValidator == nil {
		cfg.TokenValidator = DefaultAuthConfig().TokenValidator
	}

	return func(c *fiber.Ctx) error {
		// Allow public access to well-known endpoints for metadata discovery
		if cfg.SkipWellKnown && strings.Contains(c.Path(), ".well-known") {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if token == "" {
			if cfg.ResourceMetadataURL != "" {
				c.Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="OAuth", resource_metadata="%s"`, cfg.ResourceMetadataURL))
			} else {
				c.Set("WWW-Authenticate", `Bearer realm="OAuth"`)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid Bearer token",
			})
		}

		if cfg.JWTAuthenticator != nil {
			user, err := cfg.JWTAuthenticator.ValidateToken(token)
			if err != nil {
				logrus.WithError(err).Debug("rejected bearer token")
				c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Invalid token",
					"details": err.Error(),
				})
			}

			if cfg.ResourceID != "" && !hasAudience(user.Aud, cfg.ResourceID) {
				c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid audience",
				})
			}

			c.Locals("user", user)
		} else {
			var audience []string
			if cfg.ResourceID != "" {
				audience = []string{cfg.ResourceID}
			}

			if err := cfg.TokenValidator(token, audience); err != nil {
				c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid token",
				})
			}
		}

		return c.Next()
	}
}

func hasAudience(audiences []string, resourceID string) bool {
	for _, aud := range audiences {
		if aud == resourceID {
			return true
		}
	}
	return false
}

// GetAuthenticatedUser retrieves the authenticated user from Fiber context
// Returns nil if no user is found or if user is not of correct type
func GetAuthenticatedUser(c *fiber.Ctx) *utils.AuthenticatedUser {
	user, ok := c.Locals("user").(*utils.AuthenticatedUser)
	if !ok {
		return nil
	}
	return user
}
