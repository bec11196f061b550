// Package security provides HTTP hardening for the FountainScan API:
// response headers, CORS for browser extensions, admin-secret checks and
// outbound URL validation.
package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware adds security headers to all responses.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")

		// The API serves JSON only; nothing should ever render or frame it.
		c.Header("Content-Security-Policy", "default-src 'none'; connect-src 'self' ws: wss:; frame-ancestors 'none'")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// CORSMiddleware handles CORS for API endpoints. Entries ending in "*"
// match by prefix, so "chrome-extension://*" admits every installed
// extension.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	exact := make(map[string]bool)
	var prefixes []string
	wildcard := false
	for _, o := range allowedOrigins {
		switch {
		case o == "*":
			wildcard = true
		case strings.HasSuffix(o, "*"):
			prefixes = append(prefixes, strings.TrimSuffix(o, "*"))
		default:
			exact[o] = true
		}
	}

	allowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || wildcard || exact[origin] {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowed(origin) {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Extension-ID, "+AdminSecretHeader)
			c.Header("Access-Control-Max-Age", "86400")
			// Wildcard origins never get credentials.
			if !wildcard {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
