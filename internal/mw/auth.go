package mw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nsaronson/next-step-paws-sub000/internal/auth"
	"github.com/nsaronson/next-step-paws-sub000/internal/model"
)

const claimsKey = "authClaims"

var errMissingBearer = errors.New("missing bearer token")

// Authenticate requires a valid bearer token and stores its claims on the
// context. Missing and invalid tokens both end the request with 401.
func Authenticate(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, tokens)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth stores claims when a valid token is present and lets the
// request through either way. Listings use it to widen what owners see.
func OptionalAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c, tokens); err == nil {
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

// RequireOwner ends the request with 403 unless the authenticated user holds
// the owner role. It must run after Authenticate.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || claims.Role != model.RoleOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "owner access required"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the authenticated claims stored on the context, or nil
// when the request is anonymous.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func bearerClaims(c *gin.Context, tokens *auth.Tokens) (*auth.Claims, error) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, errMissingBearer
	}
	return tokens.Parse(strings.TrimPrefix(h, "Bearer "))
}
