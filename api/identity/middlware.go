package identity

import (
	"net/http"
	"strings"

	"github.com/beka-birhanu/mazegen/service/i"
	"github.com/gin-gonic/gin"
)

const (
	// ContextTokenClaims is the key used to store write-token claims in the Gin context.
	ContextTokenClaims = "tokenClaims"

	// ClaimMazeID names the claim holding the ID of the maze a token may modify.
	ClaimMazeID = "maze_id"
)

// Authorize rejects requests without a valid bearer token and stores the
// token's claims in the context for the handlers.
func Authorize(ts i.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Retrieve the access token from the Authorization header.
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing write token"})
			return
		}

		// Split the "Bearer" prefix from the token.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims, err := ts.Decode(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid write token"})
			return
		}

		c.Set(ContextTokenClaims, claims)
		c.Next()
	}
}

// MazeID returns the maze ID claim stored by Authorize.
func MazeID(c *gin.Context) (string, bool) {
	raw, ok := c.Get(ContextTokenClaims)
	if !ok {
		return "", false
	}
	claims, ok := raw.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := claims[ClaimMazeID].(string)
	return id, ok
}
