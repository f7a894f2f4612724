package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hardhat-shell/internal/model"
	"hardhat-shell/internal/store"
)

// RemoteConfigurer lets a settings change retarget the remote client without
// a restart.
type RemoteConfigurer interface {
	Configure(baseURL string, timeout time.Duration)
	CheckHealth(ctx context.Context) (json.RawMessage, error)
}

type SettingsHandler struct {
	Store  *store.Store
	Remote RemoteConfigurer
	Log    *zap.Logger
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.Store.Settings()})
}

// Put replaces the configuration wholesale. A persistence failure still
// leaves the new settings active in memory, and the UI is told about it.
func (h *SettingsHandler) Put(c *gin.Context) {
	var body model.Settings
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	saved, err := h.Store.UpdateSettings(body)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("settings save failed", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Settings could not be saved to disk",
			"settings": saved,
		})
		return
	}

	if h.Remote != nil {
		h.Remote.Configure(saved.API.BaseURL, time.Duration(saved.API.TimeoutMillis)*time.Millisecond)
	}

	c.JSON(http.StatusOK, gin.H{"settings": saved})
}

// TestConnection probes the detection service with the active configuration.
func (h *SettingsHandler) TestConnection(c *gin.Context) {
	payload, err := h.Remote.CheckHealth(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": "Detection service unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "status": payload})
}
