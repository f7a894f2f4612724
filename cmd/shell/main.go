package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/bridge"
	"hardhat-shell/internal/capture"
	"hardhat-shell/internal/config"
	"hardhat-shell/internal/hub"
	"hardhat-shell/internal/logger"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/notify"
	"hardhat-shell/internal/poller"
	"hardhat-shell/internal/remote"
	"hardhat-shell/internal/server"
	"hardhat-shell/internal/session"
	"hardhat-shell/internal/snapshot"
	"hardhat-shell/internal/store"
)

const version = "1.4.0"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	gin.SetMode(cfg.GinMode)

	// Env-level remote config is the baseline; a settings blob saved from the
	// UI overrides it once one exists.
	defaults := model.DefaultSettings()
	defaults.API.BaseURL = cfg.RemoteBaseURL
	defaults.API.TimeoutMillis = int(cfg.RemoteTimeout / time.Millisecond)

	systemStore := store.NewWithOptions(store.Options{
		SettingsFile: filepath.Join(cfg.DataDir, "settings.json"),
		Defaults:     defaults,
		Logger:       zlog,
	})

	tokenCfg := auth.TokenConfig{
		Secret: cfg.TokenSecret,
		Expiry: cfg.TokenExpiry,
		Issuer: "hardhat-shell",
	}

	settings := systemStore.Settings()
	remoteClient := remote.New(settings.API.BaseURL, time.Duration(settings.API.TimeoutMillis)*time.Millisecond, zlog)

	sessions := session.New(session.Options{
		File:   filepath.Join(cfg.DataDir, "session.json"),
		Logger: zlog,
		Tokens: tokenCfg,
	})
	if sess, _, ok := sessions.Restore(); ok {
		zlog.Info("session restored", zap.String("username", sess.Username))
	}

	captureMgr := capture.NewManager(zlog)

	surface := bridge.NewSurface(version, runtime.GOOS, nil, zlog)
	uiHub := hub.New()

	notifier, err := notify.NewFromEnv(zlog)
	if err != nil {
		zlog.Warn("violation notifier disabled", zap.Error(err))
	}
	defer notifier.Close()

	images, err := snapshot.NewMinioStoreFromEnv(zlog)
	if err != nil {
		zlog.Warn("image store disabled", zap.Error(err))
	}

	deps := server.Deps{
		Store:       systemStore,
		Sessions:    sessions,
		Remote:      remoteClient,
		Capture:     captureMgr,
		Surface:     surface,
		Hub:         uiHub,
		TokenConfig: tokenCfg,
		Version:     version,
		Log:         zlog,
	}
	if images != nil {
		deps.Images = images
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	router := server.NewRouter(deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectivity := poller.New(remoteClient, systemStore, poller.Options{
		Interval: cfg.PollInterval,
		Logger:   zlog,
	})
	go connectivity.Run(ctx)

	srv := server.NewHTTPServer(cfg, router)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	zlog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("shutdown incomplete", zap.Error(err))
	}
}
