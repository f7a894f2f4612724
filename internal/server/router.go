package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/bridge"
	"hardhat-shell/internal/capture"
	"hardhat-shell/internal/handler"
	"hardhat-shell/internal/hub"
	"hardhat-shell/internal/middleware"
	"hardhat-shell/internal/session"
	"hardhat-shell/internal/snapshot"
	"hardhat-shell/internal/store"
)

// RemoteClient is everything the handlers need from the detection service
// client.
type RemoteClient interface {
	handler.Detector
	handler.RemoteConfigurer
	handler.StatusFetcher
	session.RemoteAuthenticator
}

type Deps struct {
	Store       *store.Store
	Sessions    *session.Store
	Remote      RemoteClient
	Capture     *capture.Manager
	Surface     *bridge.Surface
	Hub         *hub.Hub
	Images      snapshot.ImageStore
	Notifier    handler.ViolationNotifier
	TokenConfig auth.TokenConfig
	Version     string
	Log         *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	systemHandler := &handler.SystemHandler{Store: deps.Store, Remote: deps.Remote, Version: deps.Version}
	r.GET("/health", systemHandler.Health)

	loginLimiter := middleware.NewLoginLimiter(10, time.Minute)
	authHandler := &handler.AuthHandler{
		Sessions: deps.Sessions,
		Remote:   deps.Remote,
		Store:    deps.Store,
	}

	// Only the loopback UI can reach these; session bootstrap happens before
	// the renderer holds a token.
	r.POST("/v1/auth/login", loginLimiter.Throttle(), authHandler.Login)
	r.GET("/v1/auth/session", authHandler.Session)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireSession(deps.TokenConfig, deps.Sessions))

	protected.POST("/auth/logout", authHandler.Logout)

	cameraHandler := &handler.CameraHandler{Store: deps.Store, Capture: deps.Capture}
	protected.GET("/cameras", cameraHandler.List)
	protected.POST("/cameras", cameraHandler.Create)
	protected.DELETE("/cameras/:id", cameraHandler.Delete)
	protected.PUT("/cameras/:id/status", cameraHandler.SetStatus)
	protected.POST("/cameras/:id/recording", cameraHandler.ToggleRecording)
	protected.GET("/devices", cameraHandler.Devices)

	detectionHandler := &handler.DetectionHandler{
		Store:    deps.Store,
		Remote:   deps.Remote,
		Capture:  deps.Capture,
		Images:   deps.Images,
		Notifier: deps.Notifier,
		Hub:      deps.Hub,
		Log:      deps.Log,
	}
	protected.GET("/detections", detectionHandler.List)
	protected.POST("/detections/:id/resolve", detectionHandler.Resolve)
	protected.POST("/detect/upload", detectionHandler.DetectUpload)
	protected.POST("/detect/base64", detectionHandler.DetectBase64)
	protected.POST("/detect/camera/:id", detectionHandler.DetectCamera)
	protected.GET("/detect/test", detectionHandler.DetectTest)

	userHandler := &handler.UserHandler{Store: deps.Store}
	protected.GET("/users", userHandler.List)

	adminOnly := protected.Group("")
	adminOnly.Use(middleware.RequireAdmin())
	adminOnly.POST("/users", userHandler.Create)
	adminOnly.PUT("/users/:id", userHandler.Update)
	adminOnly.DELETE("/users/:id", userHandler.Delete)
	adminOnly.POST("/users/:id/toggle-active", userHandler.ToggleActive)

	settingsHandler := &handler.SettingsHandler{Store: deps.Store, Remote: deps.Remote, Log: deps.Log}
	protected.GET("/settings", settingsHandler.Get)
	protected.PUT("/settings", settingsHandler.Put)
	protected.POST("/settings/test", settingsHandler.TestConnection)

	protected.GET("/stats", systemHandler.Stats)
	protected.GET("/status", systemHandler.APIStatus)
	protected.GET("/status/remote", systemHandler.RemoteStatus)

	bridgeHandler := &handler.BridgeHandler{Surface: deps.Surface, Hub: deps.Hub, Log: deps.Log}
	protected.GET("/ws", bridgeHandler.Serve)

	return r
}
