// README: Auth middleware. Verifies the bearer token and stores the caller
// on the request context for handlers to pick up.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kedai/internal/auth"
	"kedai/internal/types"
)

const callerKey = "caller"

func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		p, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerKey, p)
		c.Next()
	}
}

// Caller returns the authenticated principal set by Auth.
func Caller(c *gin.Context) types.Principal {
	v, ok := c.Get(callerKey)
	if !ok {
		return types.Principal{}
	}
	p, _ := v.(types.Principal)
	return p
}
