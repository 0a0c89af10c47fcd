package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/lifecycle"
)

const CtxClaimsKey = "auth_claims"

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

// OptionalAuth attaches claims when a valid bearer token is present and
// rejects requests carrying an invalid one. Anonymous requests pass.
func OptionalAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Given token not valid."})
			c.Abort()
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Authentication credentials were not provided."})
			c.Abort()
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Given token not valid."})
			c.Abort()
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// MustGetClaims returns the claims set by the middleware, or nil.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// ActorFrom returns the actor behind the request; anonymous when unauthenticated.
func ActorFrom(c *gin.Context) lifecycle.Actor {
	return MustGetClaims(c).Actor()
}
