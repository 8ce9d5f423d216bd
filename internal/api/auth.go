package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────
// API Key Authentication Middleware
//
// Every route requires: X-API-Key: <key>
// except the public exemptions below (the collector script must be
// loadable by any landing page, and the doc endpoints stay open).
// ──────────────────────────────────────────────────────────────────

var exemptPaths = map[string]bool{
	"/fraud/collector.js": true,
	"/openapi.json":       true,
	"/docs":               true,
	"/redoc":              true,
}

// APIKeyMiddleware returns a Gin middleware validating the X-API-Key header.
// If no key is configured, all requests are allowed (dev mode).
// WARNING: In GIN_MODE=release, leaving the key unset exposes all protected
// routes to the public internet. Always set a strong key in prod.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	if apiKey == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[SECURITY WARNING] API key is not set in release mode. " +
			"All protected endpoints are publicly accessible. " +
			"Set APP__API__API_KEY in your environment to enforce authentication.")
	}

	return func(c *gin.Context) {
		// If no key is configured, skip auth (development mode)
		if apiKey == "" {
			c.Next()
			return
		}

		if exemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")

		// Use constant-time comparison to prevent timing-based key enumeration.
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
