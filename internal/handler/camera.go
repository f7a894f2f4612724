package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hardhat-shell/internal/capture"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/store"
)

type CameraHandler struct {
	Store   *store.Store
	Capture *capture.Manager
}

type cameraBody struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
	Source   string `json:"source"`
}

func (h *CameraHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cameras": h.Store.ListCameras()})
}

func (h *CameraHandler) Create(c *gin.Context) {
	var body cameraBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Name == "" || body.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and source required"})
		return
	}

	connType := model.ConnectionType(body.Type)
	switch connType {
	case model.ConnectionRTSP, model.ConnectionWebcam, model.ConnectionIP:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid camera type"})
		return
	}

	cam := h.Store.AddCamera(store.CameraInput{
		Name:     body.Name,
		Location: body.Location,
		Type:     connType,
		Source:   body.Source,
	})

	// IP cameras expose a snapshot endpoint the host can grab frames from.
	if connType == model.ConnectionIP && h.Capture != nil {
		h.Capture.Register(capture.NewHTTPSource(cam.ID, cam.Name, cam.Source))
	}

	c.JSON(http.StatusCreated, gin.H{"camera": cam})
}

func (h *CameraHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.Store.RemoveCamera(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		return
	}
	if h.Capture != nil {
		h.Capture.Unregister(id)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type cameraStatusBody struct {
	Status string `json:"status"`
}

func (h *CameraHandler) SetStatus(c *gin.Context) {
	var body cameraStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	status := model.CameraStatus(body.Status)
	if status != model.CameraOnline && status != model.CameraOffline {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	cam, ok := h.Store.SetCameraStatus(c.Param("id"), status)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": cam})
}

func (h *CameraHandler) ToggleRecording(c *gin.Context) {
	cam, ok := h.Store.ToggleCameraRecording(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": cam})
}

func (h *CameraHandler) Devices(c *gin.Context) {
	devices := []capture.Device{}
	if h.Capture != nil {
		devices = h.Capture.ListDevices()
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}
