package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// HostWindow is the native window the privileged side controls on behalf of
// the UI. Implementations are free to be absent: the surface treats a nil
// window as a no-op target.
type HostWindow interface {
	Minimize()
	Maximize()
	Restore()
	Close()
	IsMaximized() bool
}

// Request is one invocation arriving over the bridge channel. Op names form a
// closed set; anything else is answered with an error, never forwarded.
type Request struct {
	ID string `json:"id"`
	Op string `json:"op"`
}

type Response struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

const (
	OpGetAppVersion  = "get-app-version"
	OpGetPlatform    = "get-platform"
	OpMinimizeWindow = "minimize-window"
	OpMaximizeWindow = "maximize-window"
	OpCloseWindow    = "close-window"
	OpIsMaximized    = "is-maximized"
)

// Surface answers the fixed set of host operations the UI may invoke.
type Surface struct {
	mu       sync.RWMutex
	version  string
	platform string
	window   HostWindow
	log      *zap.Logger
}

func NewSurface(version, platform string, window HostWindow, log *zap.Logger) *Surface {
	if log == nil {
		log = zap.NewNop()
	}
	return &Surface{
		version:  version,
		platform: platform,
		window:   window,
		log:      log,
	}
}

// AttachWindow swaps the controlled window. Passing nil detaches it, after
// which window operations silently do nothing.
func (s *Surface) AttachWindow(w HostWindow) {
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
}

func (s *Surface) DetachWindow() {
	s.AttachWindow(nil)
}

// Dispatch answers one request. The reply always carries the request's id and
// op so the caller can correlate it; unknown ops get an error reply rather
// than a dropped message.
func (s *Surface) Dispatch(req Request) Response {
	resp := Response{ID: req.ID, Op: req.Op}

	switch req.Op {
	case OpGetAppVersion:
		resp.Result = marshalResult(s.version)
	case OpGetPlatform:
		resp.Result = marshalResult(s.platform)
	case OpMinimizeWindow:
		s.withWindow(func(w HostWindow) { w.Minimize() })
		resp.Result = marshalResult(true)
	case OpMaximizeWindow:
		// Toggles: a maximized window is restored, anything else maximized.
		s.withWindow(func(w HostWindow) {
			if w.IsMaximized() {
				w.Restore()
			} else {
				w.Maximize()
			}
		})
		resp.Result = marshalResult(true)
	case OpCloseWindow:
		s.withWindow(func(w HostWindow) { w.Close() })
		resp.Result = marshalResult(true)
	case OpIsMaximized:
		maximized := false
		s.withWindow(func(w HostWindow) { maximized = w.IsMaximized() })
		resp.Result = marshalResult(maximized)
	default:
		s.log.Warn("unknown bridge op", zap.String("op", req.Op))
		resp.Error = fmt.Sprintf("unknown operation: %q", req.Op)
	}
	return resp
}

// withWindow runs fn against the attached window, or not at all when none is
// attached.
func (s *Surface) withWindow(fn func(HostWindow)) {
	s.mu.RLock()
	w := s.window
	s.mu.RUnlock()
	if w == nil {
		return
	}
	fn(w)
}

func marshalResult(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
