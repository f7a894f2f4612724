package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"hardhat-shell/internal/model"
)

// ErrRemoteUnavailable covers network and timeout failures reaching the
// detection service. The connectivity poller maps it to the Disconnected
// state.
var ErrRemoteUnavailable = errors.New("detection service unreachable")

// DetectionError is a non-success answer from the detect endpoint, carrying
// whatever reason the service reported.
type DetectionError struct {
	StatusCode int
	Reason     string
}

func (e *DetectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("detection failed: %s", e.Reason)
	}
	return fmt.Sprintf("detection failed: status %d", e.StatusCode)
}

// AuthRejectedError means the service answered the login request and said no.
type AuthRejectedError struct {
	Detail string
}

func (e *AuthRejectedError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "invalid credentials"
}

// Client is a typed wrapper over the detection service HTTP interface.
// Every call is a single attempt with the configured timeout; the stored
// retry-attempts setting is intentionally not consumed here.
type Client struct {
	mu      sync.RWMutex
	http    *resty.Client
	timeout time.Duration
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:    newRestyClient(baseURL, timeout),
		timeout: timeout,
		log:     log,
	}
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/api/v1").
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// UpdateBaseURL swaps the endpoint for all subsequent calls. In-flight
// requests keep the client they started with.
func (c *Client) UpdateBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = newRestyClient(baseURL, c.timeout)
}

// Configure replaces both endpoint and timeout, e.g. after a settings save.
func (c *Client) Configure(baseURL string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
	c.http = newRestyClient(baseURL, timeout)
}

func (c *Client) client() *resty.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func reasonFromBody(body []byte, statusCode int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Detail != "" {
			return eb.Detail
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return fmt.Sprintf("status %d", statusCode)
}

func (c *Client) CheckHealth(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.client().R().SetContext(ctx).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *Client) GetStatus(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.client().R().SetContext(ctx).Get("/status")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// DetectFromImage submits binary image content as a multipart upload.
func (c *Client) DetectFromImage(ctx context.Context, filename string, data []byte) (model.DetectionResult, error) {
	var result model.DetectionResult
	resp, err := c.client().R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetResult(&result).
		Post("/detect")
	if err != nil {
		c.log.Warn("detect upload failed", zap.Error(err))
		return model.DetectionResult{}, &DetectionError{Reason: err.Error()}
	}
	if resp.IsError() {
		reason := reasonFromBody(resp.Body(), resp.StatusCode())
		c.log.Warn("detect rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("reason", reason),
		)
		return model.DetectionResult{}, &DetectionError{StatusCode: resp.StatusCode(), Reason: reason}
	}
	return result, nil
}

// DetectFromImageBase64 is the JSON-body encoding of the same operation,
// used by the renderer's getUserMedia capture path.
func (c *Client) DetectFromImageBase64(ctx context.Context, imageBase64 string) (model.DetectionResult, error) {
	var result model.DetectionResult
	resp, err := c.client().R().
		SetContext(ctx).
		SetBody(map[string]string{"image_base64": imageBase64}).
		SetResult(&result).
		Post("/detect")
	if err != nil {
		c.log.Warn("detect base64 failed", zap.Error(err))
		return model.DetectionResult{}, &DetectionError{Reason: err.Error()}
	}
	if resp.IsError() {
		reason := reasonFromBody(resp.Body(), resp.StatusCode())
		return model.DetectionResult{}, &DetectionError{StatusCode: resp.StatusCode(), Reason: reason}
	}
	return result, nil
}

// TestDetection runs the service's built-in self test.
func (c *Client) TestDetection(ctx context.Context) (model.DetectionResult, error) {
	var result model.DetectionResult
	resp, err := c.client().R().SetContext(ctx).SetResult(&result).Get("/detect/test")
	if err != nil {
		return model.DetectionResult{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		reason := reasonFromBody(resp.Body(), resp.StatusCode())
		return model.DetectionResult{}, &DetectionError{StatusCode: resp.StatusCode(), Reason: reason}
	}
	return result, nil
}

type loginResponse struct {
	User model.RemoteUser `json:"user"`
}

// Login authenticates against the detection service. A transport failure is
// ErrRemoteUnavailable; an answered rejection is AuthRejectedError with the
// service's detail message.
func (c *Client) Login(ctx context.Context, username, password string) (model.RemoteUser, error) {
	var body loginResponse
	resp, err := c.client().R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&body).
		Post("/auth/login")
	if err != nil {
		return model.RemoteUser{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		var eb errorBody
		_ = json.Unmarshal(resp.Body(), &eb)
		c.log.Info("login rejected",
			zap.String("username", username),
			zap.Int("status_code", resp.StatusCode()),
		)
		return model.RemoteUser{}, &AuthRejectedError{Detail: eb.Detail}
	}
	return body.User, nil
}
