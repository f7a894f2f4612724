package config

import (
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8717 {
		t.Fatalf("expected default port 8717, got %d", cfg.Port)
	}
	if cfg.RemoteBaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected default remote url %q", cfg.RemoteBaseURL)
	}
	if cfg.RemoteTimeout != 30*time.Second {
		t.Fatalf("expected 30s remote timeout, got %v", cfg.RemoteTimeout)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.TokenSecret == "" {
		t.Fatalf("expected a generated token secret")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"HARDHAT_PORT":                  "1234",
		"HARDHAT_REMOTE_URL":            "http://10.0.0.5:9000",
		"HARDHAT_REMOTE_TIMEOUT_MS":     "5000",
		"HARDHAT_POLL_INTERVAL_SECONDS": "10",
		"HARDHAT_TOKEN_SECRET":          "s3cret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("expected port 1234, got %d", cfg.Port)
	}
	if cfg.RemoteBaseURL != "http://10.0.0.5:9000" {
		t.Fatalf("unexpected remote url %q", cfg.RemoteBaseURL)
	}
	if cfg.RemoteTimeout != 5*time.Second {
		t.Fatalf("expected 5s remote timeout, got %v", cfg.RemoteTimeout)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("expected 10s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.TokenSecret != "s3cret" {
		t.Fatalf("expected explicit secret to win")
	}
}

func TestLoadConfigFromEnv_InvalidPort(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{"HARDHAT_PORT": "no"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_InvalidTimeout(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{"HARDHAT_REMOTE_TIMEOUT_MS": "-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
}
