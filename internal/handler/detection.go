package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hardhat-shell/internal/capture"
	"hardhat-shell/internal/hub"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/remote"
	"hardhat-shell/internal/snapshot"
	"hardhat-shell/internal/store"
)

// Detector is the slice of the remote client the detection handler needs.
type Detector interface {
	DetectFromImage(ctx context.Context, filename string, data []byte) (model.DetectionResult, error)
	DetectFromImageBase64(ctx context.Context, imageBase64 string) (model.DetectionResult, error)
	TestDetection(ctx context.Context) (model.DetectionResult, error)
}

// ViolationNotifier receives detections that classified as violations.
type ViolationNotifier interface {
	ViolationDetected(d model.Detection)
}

type DetectionHandler struct {
	Store    *store.Store
	Remote   Detector
	Capture  *capture.Manager
	Images   snapshot.ImageStore
	Notifier ViolationNotifier
	Hub      *hub.Hub
	Log      *zap.Logger
}

const maxUploadBytes = 20 << 20

func (h *DetectionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detections": h.Store.ListDetections()})
}

func (h *DetectionHandler) Resolve(c *gin.Context) {
	d, ok := h.Store.ResolveDetection(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Detection not found or already resolved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detection": d})
}

// DetectUpload runs detection on an uploaded image file.
func (h *DetectionHandler) DetectUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image file"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty image file"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
		return
	}

	result, err := h.Remote.DetectFromImage(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.replyDetectError(c, err)
		return
	}

	h.record(c, model.SourceUpload, "", result, data)
}

type detectBase64Body struct {
	Image    string `json:"image"`
	CameraID string `json:"cameraId"`
}

// DetectBase64 runs detection on a frame the UI captured itself, sent as a
// base64 string (optionally a data URL).
func (h *DetectionHandler) DetectBase64(c *gin.Context) {
	var body detectBase64Body
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image"})
		return
	}

	encoded := body.Image
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}

	result, err := h.Remote.DetectFromImageBase64(c.Request.Context(), encoded)
	if err != nil {
		h.replyDetectError(c, err)
		return
	}

	var raw []byte
	if decoded, decErr := base64.StdEncoding.DecodeString(encoded); decErr == nil {
		raw = decoded
	}
	h.record(c, model.SourceWebcam, body.CameraID, result, raw)
}

// DetectCamera grabs one frame from a registered camera and runs detection
// on it.
func (h *DetectionHandler) DetectCamera(c *gin.Context) {
	id := c.Param("id")
	frame, err := h.Capture.CaptureFrame(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		case errors.Is(err, capture.ErrDeviceBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "Camera busy"})
		case errors.Is(err, capture.ErrGrabUnsupported):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Camera must be captured from the UI"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Frame capture failed"})
		}
		return
	}

	result, err := h.Remote.DetectFromImage(c.Request.Context(), id+".jpg", frame)
	if err != nil {
		h.replyDetectError(c, err)
		return
	}

	h.record(c, model.SourceWebcam, id, result, frame)
}

// DetectTest asks the service to run detection on its own sample image.
func (h *DetectionHandler) DetectTest(c *gin.Context) {
	result, err := h.Remote.TestDetection(c.Request.Context())
	if err != nil {
		h.replyDetectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// record stores the detection, optionally keeps the image, and fans the
// event out to notifier and UI.
func (h *DetectionHandler) record(c *gin.Context, source model.DetectionSource, cameraID string, result model.DetectionResult, image []byte) {
	settings := h.Store.Settings()

	imageURL := ""
	if h.Images != nil && len(image) > 0 && settings.Detection.SaveImages {
		key := "detections/" + uuid.NewString() + ".jpg"
		url, err := h.Images.SaveImage(c.Request.Context(), key, image, "image/jpeg")
		if err != nil {
			if h.Log != nil {
				h.Log.Warn("detection image save failed", zap.Error(err))
			}
		} else {
			imageURL = url
		}
	}

	d := h.Store.AddDetection(source, cameraID, result, imageURL)

	if d.Type == model.Violation && h.Notifier != nil && settings.Notifications.Enabled {
		h.Notifier.ViolationDetected(d)
	}
	if h.Hub != nil {
		if out, err := json.Marshal(gin.H{"type": "update", "event": "detection", "body": d}); err == nil {
			h.Hub.Broadcast(out)
		}
	}

	c.JSON(http.StatusOK, gin.H{"detection": d})
}

func (h *DetectionHandler) replyDetectError(c *gin.Context, err error) {
	var detectErr *remote.DetectionError
	if errors.As(err, &detectErr) {
		status := http.StatusBadGateway
		if detectErr.StatusCode >= 400 && detectErr.StatusCode < 500 {
			status = detectErr.StatusCode
		}
		reason := detectErr.Reason
		if reason == "" {
			reason = "Detection failed"
		}
		c.JSON(status, gin.H{"error": reason})
		return
	}
	if errors.Is(err, remote.ErrRemoteUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Detection service unreachable"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "Detection failed"})
}
