package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/mossy-p/peer-signaling/internal/auth"
)

// TokenKey is the gin context key holding the handshake bearer token.
const TokenKey = "bearer_token"

// HandshakeToken captures the bearer token a client supplies when opening a
// connection, from the Authorization header or the token query parameter.
// It never rejects a request: a connection without a token is still
// accepted and each message is authorized on its own.
func HandshakeToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			// Browsers cannot set headers on WebSocket requests
			token = auth.BearerToken(c.Query("token"))
		}
		c.Set(TokenKey, token)
		c.Next()
	}
}
