package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/bridge"
	"hardhat-shell/internal/capture"
	"hardhat-shell/internal/hub"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/remote"
	"hardhat-shell/internal/server"
	"hardhat-shell/internal/session"
	"hardhat-shell/internal/store"
)

type fakeRemote struct {
	mu         sync.Mutex
	loginUser  model.RemoteUser
	loginErr   error
	detections model.DetectionResult
	detectErr  error
	baseURL    string
	timeout    time.Duration
}

func (f *fakeRemote) Login(_ context.Context, _, _ string) (model.RemoteUser, error) {
	return f.loginUser, f.loginErr
}

func (f *fakeRemote) DetectFromImage(_ context.Context, _ string, _ []byte) (model.DetectionResult, error) {
	return f.detections, f.detectErr
}

func (f *fakeRemote) DetectFromImageBase64(_ context.Context, _ string) (model.DetectionResult, error) {
	return f.detections, f.detectErr
}

func (f *fakeRemote) TestDetection(_ context.Context) (model.DetectionResult, error) {
	return f.detections, f.detectErr
}

func (f *fakeRemote) CheckHealth(_ context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"healthy"}`), nil
}

func (f *fakeRemote) GetStatus(_ context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"model":"loaded"}`), nil
}

func (f *fakeRemote) Configure(baseURL string, timeout time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseURL = baseURL
	f.timeout = timeout
}

func (f *fakeRemote) configured() (string, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL, f.timeout
}

type env struct {
	router  http.Handler
	remote  *fakeRemote
	store   *store.Store
	session *session.Store
}

func newEnv(t *testing.T, role string) (*env, string) {
	t.Helper()

	remote := &fakeRemote{
		loginUser: model.RemoteUser{ID: 1, Username: "dana", Name: "Dana", Email: "dana@site.test", Role: role},
	}
	systemStore := store.New()
	tokens := auth.DefaultTokenConfig("router-test-secret")
	sessions := session.New(session.Options{Tokens: tokens})

	deps := server.Deps{
		Store:       systemStore,
		Sessions:    sessions,
		Remote:      remote,
		Capture:     capture.NewManager(nil),
		Surface:     bridge.NewSurface("1.4.0", "linux", nil, nil),
		Hub:         hub.New(),
		TokenConfig: tokens,
		Version:     "1.4.0",
	}
	router := server.NewRouter(deps)

	body, _ := json.Marshal(map[string]string{"username": "dana", "password": "secret"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)

	return &env{router: router, remote: remote, store: systemStore, session: sessions}, loginResp.Token
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	e, _ := newEnv(t, "admin")
	w := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e, _ := newEnv(t, "admin")
	w := e.do(t, http.MethodGet, "/v1/cameras", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectedByRemote(t *testing.T) {
	e, _ := newEnv(t, "admin")
	e.remote.loginErr = &remote.AuthRejectedError{Detail: "Incorrect username or password"}

	w := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "dana", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThrottledAfterRepeatedAttempts(t *testing.T) {
	e, _ := newEnv(t, "admin")
	e.remote.loginErr = &remote.AuthRejectedError{Detail: "Incorrect username or password"}

	body := map[string]string{"username": "dana", "password": "wrong"}

	// The bootstrap login in newEnv already spent one attempt; nine more
	// exhaust the ten-per-minute budget for this client.
	for i := 0; i < 9; i++ {
		w := e.do(t, http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := e.do(t, http.MethodPost, "/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCameraCRUD(t *testing.T) {
	e, token := newEnv(t, "admin")

	w := e.do(t, http.MethodPost, "/v1/cameras", token, map[string]string{
		"name":   "Gate A",
		"type":   "rtsp",
		"source": "rtsp://10.0.0.4/stream",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Camera model.Camera `json:"camera"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = e.do(t, http.MethodPut, "/v1/cameras/"+created.Camera.ID+"/status", token, map[string]string{"status": "online"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/v1/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statsResp struct {
		Stats model.SystemStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statsResp))
	require.Equal(t, 1, statsResp.Stats.ActiveCameras)

	w = e.do(t, http.MethodDelete, "/v1/cameras/"+created.Camera.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/v1/cameras/"+created.Camera.ID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectUploadRecordsViolation(t *testing.T) {
	e, token := newEnv(t, "admin")
	e.remote.detections = model.DetectionResult{Detections: []model.Finding{{Class: "no_helmet", Confidence: 0.9}}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "frame.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpegbytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/detect/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Detection model.Detection `json:"detection"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, model.Violation, resp.Detection.Type)

	list := e.do(t, http.MethodGet, "/v1/detections", token, nil)
	require.Equal(t, http.StatusOK, list.Code)
	require.True(t, strings.Contains(list.Body.String(), resp.Detection.ID))
}

func TestUserRoutesAdminGated(t *testing.T) {
	e, token := newEnv(t, "technician")

	w := e.do(t, http.MethodPost, "/v1/users", token, map[string]interface{}{
		"name": "Sam", "email": "sam@site.test", "role": "technician",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Reading the roster is open to any session.
	w = e.do(t, http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUserCreateAsAdmin(t *testing.T) {
	e, token := newEnv(t, "admin")

	w := e.do(t, http.MethodPost, "/v1/users", token, map[string]interface{}{
		"name": "Sam", "email": "sam@site.test", "role": "technician",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/v1/users", token, map[string]interface{}{
		"name": "Other", "email": "SAM@site.test", "role": "supervisor",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSettingsPutReconfiguresRemote(t *testing.T) {
	e, token := newEnv(t, "admin")

	settings := model.DefaultSettings()
	settings.API.BaseURL = "http://10.0.0.9:8000"
	settings.API.TimeoutMillis = 15000

	w := e.do(t, http.MethodPut, "/v1/settings", token, settings)
	require.Equal(t, http.StatusOK, w.Code)

	baseURL, timeout := e.remote.configured()
	require.Equal(t, "http://10.0.0.9:8000", baseURL)
	require.Equal(t, 15*time.Second, timeout)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	e, token := newEnv(t, "admin")

	w := e.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/v1/cameras", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
