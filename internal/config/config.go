package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	GinMode       string
	DataDir       string
	RemoteBaseURL string
	RemoteTimeout time.Duration
	PollInterval  time.Duration
	TokenSecret   string
	TokenExpiry   time.Duration
	LogLevel      string
	LogFormat     string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:          8717,
		GinMode:       "release",
		DataDir:       "data",
		RemoteBaseURL: "http://127.0.0.1:8000",
		RemoteTimeout: 30 * time.Second,
		PollInterval:  30 * time.Second,
		TokenExpiry:   12 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "console",
	}

	if raw := env.Getenv("HARDHAT_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid HARDHAT_PORT")
		}
		cfg.Port = port
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	if raw := env.Getenv("HARDHAT_DATA_DIR"); raw != "" {
		cfg.DataDir = raw
	}
	if raw := env.Getenv("HARDHAT_REMOTE_URL"); raw != "" {
		cfg.RemoteBaseURL = raw
	}

	if raw := env.Getenv("HARDHAT_REMOTE_TIMEOUT_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid HARDHAT_REMOTE_TIMEOUT_MS")
		}
		cfg.RemoteTimeout = time.Duration(ms) * time.Millisecond
	}

	if raw := env.Getenv("HARDHAT_POLL_INTERVAL_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid HARDHAT_POLL_INTERVAL_SECONDS")
		}
		cfg.PollInterval = time.Duration(seconds) * time.Second
	}

	// The token secret only guards the localhost UI channel. Without an
	// explicit secret a random one is generated; restored sessions re-mint
	// their token at startup, so nothing outlives the process.
	cfg.TokenSecret = env.Getenv("HARDHAT_TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate token secret: %w", err)
		}
		cfg.TokenSecret = secret
	}

	if raw := env.Getenv("HARDHAT_TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid HARDHAT_TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
