package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthRequired gates the API behind a bearer token compared against a
// bcrypt hash. With no hash configured the middleware is a no-op, for
// local development.
func AuthRequired(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			errorResponse(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization required")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			errorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authorization failed")
			c.Abort()
			return
		}
		c.Next()
	}
}
