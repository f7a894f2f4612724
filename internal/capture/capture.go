package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrDeviceNotFound = errors.New("capture device not found")
	ErrDeviceBusy     = errors.New("capture device busy")
	// ErrGrabUnsupported marks devices the host can enumerate but not read
	// directly; the renderer captures those through getUserMedia and sends
	// the frame over the base64 detect path instead.
	ErrGrabUnsupported = errors.New("host-side frame grab not supported for this device")
)

type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Source produces exactly one still frame per Grab call.
type Source interface {
	Device() Device
	Grab(ctx context.Context) ([]byte, error)
}

// Manager tracks capture sources and enforces exclusive acquisition: a
// device is held for the duration of a single capture and released on both
// the success and error path.
type Manager struct {
	mu      sync.Mutex
	sources map[string]Source
	inUse   map[string]bool
	log     *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sources: make(map[string]Source),
		inUse:   make(map[string]bool),
		log:     log,
	}
}

func (m *Manager) Register(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[s.Device().ID] = s
}

func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	delete(m.inUse, id)
}

// ListDevices enumerates registered sources plus local video-input nodes.
// An empty list is a valid, non-error result.
func (m *Manager) ListDevices() []Device {
	m.mu.Lock()
	devices := make([]Device, 0, len(m.sources))
	for _, s := range m.sources {
		devices = append(devices, s.Device())
	}
	m.mu.Unlock()

	devices = append(devices, localDevices()...)
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// CaptureFrame acquires the device exclusively, grabs one frame and releases
// the device whether or not the grab succeeded.
func (m *Manager) CaptureFrame(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	src, ok := m.sources[id]
	if !ok {
		m.mu.Unlock()
		if isLocalDevice(id) {
			return nil, ErrGrabUnsupported
		}
		return nil, ErrDeviceNotFound
	}
	if m.inUse[id] {
		m.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	m.inUse[id] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inUse, id)
		m.mu.Unlock()
	}()

	frame, err := src.Grab(ctx)
	if err != nil {
		m.log.Warn("frame grab failed", zap.String("device", id), zap.Error(err))
		return nil, err
	}
	return frame, nil
}

// HTTPSource grabs stills from an IP camera's snapshot endpoint.
type HTTPSource struct {
	device      Device
	snapshotURL string
	http        *http.Client
}

func NewHTTPSource(id, label, snapshotURL string) *HTTPSource {
	return &HTTPSource{
		device:      Device{ID: id, Label: label},
		snapshotURL: snapshotURL,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Device() Device { return s.device }

func (s *HTTPSource) Grab(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.snapshotURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot read: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("snapshot read: empty body")
	}
	return data, nil
}

func localDevices() []Device {
	nodes, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil
	}

	devices := make([]Device, 0, len(nodes))
	for _, node := range nodes {
		id := filepath.Base(node)
		label := id
		if name, err := os.ReadFile(filepath.Join("/sys/class/video4linux", id, "name")); err == nil {
			label = strings.TrimSpace(string(name))
		}
		devices = append(devices, Device{ID: id, Label: label})
	}
	return devices
}

func isLocalDevice(id string) bool {
	for _, d := range localDevices() {
		if d.ID == id {
			return true
		}
	}
	return false
}
