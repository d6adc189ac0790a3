// README: Firebase ID-token auth for the /api surface.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/infra"
)

const (
	uidKey   = "auth.uid"
	emailKey = "auth.email"
)

// Auth verifies the bearer token and stores the caller's uid on the context.
// WebSocket upgrades may pass the token as ?access_token= since browsers
// cannot set headers on them.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(uidKey, token.UID)
		c.Set(emailKey, token.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	if h := c.GetHeader("Authorization"); h != "" {
		if !strings.HasPrefix(h, prefix) {
			return ""
		}
		return strings.TrimSpace(h[len(prefix):])
	}
	if c.IsWebsocket() {
		return c.Query("access_token")
	}
	return ""
}

// CallerUID returns the authenticated uid, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(uidKey)
}

func CallerEmail(c *gin.Context) string {
	return c.GetString(emailKey)
}
