package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/model"
)

const (
	userIDContextKey = "userID"
	roleContextKey   = "role"
)

// SessionSource exposes the single active session. Tokens minted for an
// earlier session stop working the moment a different identity logs in.
type SessionSource interface {
	Current() (model.Session, bool)
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	value, ok := userID.(string)
	return value, ok && value != ""
}

func RoleFromContext(c *gin.Context) (model.Role, bool) {
	role, ok := c.Get(roleContextKey)
	if !ok {
		return "", false
	}
	value, ok := role.(string)
	return model.Role(value), ok && value != ""
}

func RequireSession(cfg auth.TokenConfig, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			c.Abort()
			return
		}

		claims, err := auth.VerifyToken(tokenString, cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			c.Abort()
			return
		}

		sess, ok := sessions.Current()
		if !ok || sess.UserID != claims.UserID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			c.Abort()
			return
		}

		c.Set(userIDContextKey, claims.UserID)
		c.Set(roleContextKey, string(sess.Role))
		c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok || role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	// The websocket bridge cannot set headers from the renderer, so upgrade
	// requests alone may carry the token in the query string.
	if websocket.IsWebSocketUpgrade(c.Request) {
		return c.Query("token")
	}
	return ""
}
