package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/khairulanwar/PasarBox/internal/pkg/env"
)

// RequireAdmin authenticates back-office requests with the shared admin
// token. The storefront itself is anonymous; only the admin API is gated.
func RequireAdmin(c *fiber.Ctx) error {
	token := extractAdminToken(c)
	expected := strings.TrimSpace(env.GetEnv("ADMIN_API_TOKEN", ""))

	if expected == "" {
		fiberlog.Error("ADMIN_API_TOKEN is not configured; rejecting admin request")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_auth_unconfigured"})
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin token"})
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin token"})
	}
	return c.Next()
}

func extractAdminToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get("X-Admin-Token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
