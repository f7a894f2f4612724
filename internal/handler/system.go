package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"hardhat-shell/internal/store"
)

// StatusFetcher is the slice of the remote client the system handler needs.
type StatusFetcher interface {
	GetStatus(ctx context.Context) (json.RawMessage, error)
}

type SystemHandler struct {
	Store   *store.Store
	Remote  StatusFetcher
	Version string
}

func (h *SystemHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.Store.Stats()})
}

// APIStatus reports the last connectivity poll outcome. It does not probe the
// service itself; the poller owns that.
func (h *SystemHandler) APIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apiStatus": h.Store.APIStatus()})
}

// RemoteStatus fetches the detection service's own status document.
func (h *SystemHandler) RemoteStatus(c *gin.Context) {
	payload, err := h.Remote.GetStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Detection service unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": payload})
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}
