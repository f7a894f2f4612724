package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"hardhat-shell/internal/model"
)

// Store is the single in-memory source of truth for cameras, detections,
// users and settings. Camera/detection/user records live in memory only;
// settings are durably persisted as a JSON blob. All mutators are
// synchronous; consumers receive copies, never shared references.
type Store struct {
	mu sync.RWMutex

	settingsFile string
	persistMu    sync.Mutex

	log *zap.Logger
	now func() time.Time

	cameras    []model.Camera
	detections []model.Detection
	users      []model.User
	settings   model.Settings
	apiStatus  model.APIStatus
	stats      model.SystemStats
}

type Options struct {
	SettingsFile string
	// Defaults is the settings baseline used when no blob exists on disk (or
	// the blob is corrupt). Zero value means model.DefaultSettings().
	Defaults model.Settings
	Logger   *zap.Logger
	Now      func() time.Time
}

func New() *Store {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Store {
	s := &Store{
		settingsFile: opts.SettingsFile,
		log:          opts.Logger,
		now:          opts.Now,
		settings:     model.DefaultSettings(),
	}
	if opts.Defaults != (model.Settings{}) {
		s.settings = normalizeSettings(opts.Defaults)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.settingsFile != "" {
		s.loadSettingsFromFile(s.settingsFile)
	}

	s.mu.Lock()
	s.recomputeStatsLocked(s.now())
	s.mu.Unlock()

	return s
}

// loadSettingsFromFile replaces defaults with the persisted blob. A corrupt
// blob counts as absence: defaults stay in place and the entry is erased.
func (s *Store) loadSettingsFromFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("settings load failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if len(data) == 0 {
		return
	}

	var loaded model.Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("settings blob corrupt, using defaults", zap.String("path", path), zap.Error(err))
		_ = os.Remove(path)
		return
	}

	s.mu.Lock()
	s.settings = normalizeSettings(loaded)
	s.mu.Unlock()
}

func (s *Store) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the configuration wholesale and persists it. A
// storage failure is surfaced to the caller; the in-memory state is already
// replaced at that point.
func (s *Store) UpdateSettings(in model.Settings) (model.Settings, error) {
	normalized := normalizeSettings(in)

	s.mu.Lock()
	s.settings = normalized
	s.mu.Unlock()

	if err := s.persistSettingsSnapshot(normalized); err != nil {
		return normalized, fmt.Errorf("persist settings: %w", err)
	}
	return normalized, nil
}

// normalizeSettings coerces numeric fields back into sane ranges. No other
// validation is applied; the replace is otherwise verbatim.
func normalizeSettings(in model.Settings) model.Settings {
	out := in
	defaults := model.DefaultSettings()

	if out.API.BaseURL == "" {
		out.API.BaseURL = defaults.API.BaseURL
	}
	if out.API.TimeoutMillis <= 0 {
		out.API.TimeoutMillis = defaults.API.TimeoutMillis
	}
	if out.API.RetryAttempts < 0 {
		out.API.RetryAttempts = 0
	}
	if out.Detection.ConfidenceThreshold < 0 || out.Detection.ConfidenceThreshold > 1 {
		out.Detection.ConfidenceThreshold = defaults.Detection.ConfidenceThreshold
	}
	if out.Detection.IntervalMillis <= 0 {
		out.Detection.IntervalMillis = defaults.Detection.IntervalMillis
	}
	if out.Storage.MaxStorageDays <= 0 {
		out.Storage.MaxStorageDays = defaults.Storage.MaxStorageDays
	}
	if out.Display.RefreshIntervalMillis <= 0 {
		out.Display.RefreshIntervalMillis = defaults.Display.RefreshIntervalMillis
	}
	return out
}

func (s *Store) persistSettingsSnapshot(settings model.Settings) error {
	path := s.settingsFile
	if path == "" {
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// SetAPIStatus records the outcome of a connectivity check.
func (s *Store) SetAPIStatus(connected bool, payload json.RawMessage, checkedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiStatus = model.APIStatus{
		Connected: connected,
		Status:    payload,
		LastCheck: checkedAt,
	}
}

func (s *Store) APIStatus() model.APIStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiStatus
}

func (s *Store) Stats() model.SystemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// recomputeStatsLocked derives statistics from current camera/detection
// state. violationsToday and the compliance-rate denominator both use only
// detections from the current local calendar day; totalDetections is
// all-time.
func (s *Store) recomputeStatsLocked(now time.Time) {
	active := 0
	for _, c := range s.cameras {
		if c.Status == model.CameraOnline {
			active++
		}
	}

	violationsToday := 0
	complianceToday := 0
	for _, d := range s.detections {
		if !sameDay(time.UnixMilli(d.Timestamp), now) {
			continue
		}
		switch d.Type {
		case model.Violation:
			violationsToday++
		case model.Compliance:
			complianceToday++
		}
	}

	rate := 0
	if total := violationsToday + complianceToday; total > 0 {
		rate = int(math.Round(100 * float64(complianceToday) / float64(total)))
	}

	s.stats = model.SystemStats{
		TotalCameras:    len(s.cameras),
		ActiveCameras:   active,
		TotalDetections: len(s.detections),
		ViolationsToday: violationsToday,
		ComplianceRate:  rate,
		LastUpdate:      now.UnixMilli(),
	}
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
