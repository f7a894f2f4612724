package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hardhat-shell/internal/session"
	"hardhat-shell/internal/store"
)

type AuthHandler struct {
	Sessions *session.Store
	Remote   session.RemoteAuthenticator
	Store    *store.Store
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	sess, token, err := h.Sessions.Login(c.Request.Context(), h.Remote, body.Username, body.Password)
	if err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			switch authErr.Kind {
			case session.InvalidCredentials:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			case session.NetworkUnavailable:
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Detection service unreachable"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			}
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	h.Store.RecordLogin(sess.Email)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "session": sess})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.Sessions.Logout()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := h.Sessions.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"session":       sess,
		"token":         h.Sessions.Token(),
	})
}
