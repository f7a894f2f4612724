package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/model"
)

type fakeSessions struct {
	sess model.Session
	ok   bool
}

func (f *fakeSessions) Current() (model.Session, bool) { return f.sess, f.ok }

func TestRequireSession_SetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.CreateToken("user-1", "admin", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	sessions := &fakeSessions{sess: model.Session{UserID: "user-1", Role: model.RoleAdmin}, ok: true}

	r := gin.New()
	r.GET("/", RequireSession(cfg, sessions), func(c *gin.Context) {
		uid, ok := UserIDFromContext(c)
		if !ok || uid != "user-1" {
			c.Status(http.StatusInternalServerError)
			return
		}
		role, ok := RoleFromContext(c)
		if !ok || role != model.RoleAdmin {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireSession_RejectsStaleToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.CreateToken("user-1", "admin", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	// Someone else logged in since the token was minted.
	sessions := &fakeSessions{sess: model.Session{UserID: "user-2", Role: model.RoleAdmin}, ok: true}

	r := gin.New()
	r.GET("/", RequireSession(cfg, sessions), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSession_QueryTokenOnlyOnWebsocketUpgrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.CreateToken("user-1", "admin", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	sessions := &fakeSessions{sess: model.Session{UserID: "user-1", Role: model.RoleAdmin}, ok: true}

	r := gin.New()
	r.GET("/", RequireSession(cfg, sessions), func(c *gin.Context) { c.Status(http.StatusOK) })

	// A plain REST request must not authenticate through the URL.
	req := httptest.NewRequest(http.MethodGet, "/?token="+tok, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token without upgrade, got %d", w.Code)
	}

	// An upgrade handshake may, since the renderer cannot set headers there.
	req = httptest.NewRequest(http.MethodGet, "/?token="+tok, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for query token on upgrade, got %d", w.Code)
	}
}

func TestRequireAdmin_RejectsTechnician(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.CreateToken("user-1", "technician", cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	sessions := &fakeSessions{sess: model.Session{UserID: "user-1", Role: model.RoleTechnician}, ok: true}

	r := gin.New()
	r.GET("/", RequireSession(cfg, sessions), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
