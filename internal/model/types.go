package model

import "encoding/json"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
)

// Session is the authenticated identity for the current process. At most one
// exists at a time; it is persisted as a JSON blob and survives restarts.
type Session struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	LoggedInAt int64  `json:"loggedInAt"`
}

// RemoteUser is the user object returned by the detection service on login.
type RemoteUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type ConnectionType string

const (
	ConnectionRTSP   ConnectionType = "rtsp"
	ConnectionWebcam ConnectionType = "webcam"
	ConnectionIP     ConnectionType = "ip"
)

type CameraStatus string

const (
	CameraOnline  CameraStatus = "online"
	CameraOffline CameraStatus = "offline"
)

type Camera struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	Type           ConnectionType `json:"type"`
	Source         string         `json:"source"` // URL or device index
	Status         CameraStatus   `json:"status"`
	Recording      bool           `json:"isRecording"`
	DetectionCount int            `json:"detectionCount"`
	LastDetection  *int64         `json:"lastDetection"`
	CreatedAt      int64          `json:"createdAt"`
}

type DetectionSource string

const (
	SourceWebcam DetectionSource = "webcam"
	SourceUpload DetectionSource = "upload"
)

type Classification string

const (
	Violation  Classification = "violation"
	Compliance Classification = "compliance"
)

type DetectionStatus string

const (
	DetectionPending  DetectionStatus = "pending"
	DetectionResolved DetectionStatus = "resolved"
)

// Finding is a single object the detection model reported in a frame.
type Finding struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// DetectionResult is the payload returned by the detection endpoint. A result
// with at least one finding classifies as a violation.
type DetectionResult struct {
	Detections       []Finding `json:"detections"`
	ProcessingTimeMs float64   `json:"processing_time_ms,omitempty"`
	Message          string    `json:"message,omitempty"`
}

type Detection struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Source    DetectionSource `json:"source"`
	CameraID  string          `json:"cameraId,omitempty"`
	Result    DetectionResult `json:"result"`
	Type      Classification  `json:"type"`
	Status    DetectionStatus `json:"status"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// User is a system-management record, distinct from Session. Password is
// write-only: it is accepted on create/update and never serialized out.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
	Active     bool   `json:"isActive"`
	Password   string `json:"-"`
	CreatedAt  int64  `json:"createdAt"`
	LastLogin  *int64 `json:"lastLogin"`
	LoginCount int    `json:"loginCount"`
}

type APISettings struct {
	BaseURL       string `json:"baseUrl"`
	TimeoutMillis int    `json:"timeout"`
	RetryAttempts int    `json:"retryAttempts"`
}

type DetectionSettings struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	AutoDetection       bool    `json:"autoDetection"`
	IntervalMillis      int     `json:"detectionInterval"`
	SaveImages          bool    `json:"saveImages"`
}

type NotificationSettings struct {
	Enabled      bool   `json:"enabled"`
	SoundEnabled bool   `json:"soundEnabled"`
	EmailEnabled bool   `json:"emailEnabled"`
	EmailAddress string `json:"emailAddress"`
}

type StorageSettings struct {
	MaxStorageDays     int  `json:"maxStorageDays"`
	AutoCleanup        bool `json:"autoCleanup"`
	CompressionEnabled bool `json:"compressionEnabled"`
	BackupEnabled      bool `json:"backupEnabled"`
}

type DisplaySettings struct {
	Theme                 string `json:"theme"`
	Language              string `json:"language"`
	AutoRefresh           bool   `json:"autoRefresh"`
	RefreshIntervalMillis int    `json:"refreshInterval"`
}

// Settings is the single process-wide configuration, replaced wholesale on
// save and persisted to local storage.
type Settings struct {
	API           APISettings          `json:"api"`
	Detection     DetectionSettings    `json:"detection"`
	Notifications NotificationSettings `json:"notifications"`
	Storage       StorageSettings      `json:"storage"`
	Display       DisplaySettings      `json:"display"`
}

func DefaultSettings() Settings {
	return Settings{
		API: APISettings{
			BaseURL:       "http://127.0.0.1:8000",
			TimeoutMillis: 30000,
			RetryAttempts: 3,
		},
		Detection: DetectionSettings{
			ConfidenceThreshold: 0.5,
			AutoDetection:       false,
			IntervalMillis:      5000,
			SaveImages:          true,
		},
		Notifications: NotificationSettings{
			Enabled:      true,
			SoundEnabled: true,
		},
		Storage: StorageSettings{
			MaxStorageDays:     30,
			AutoCleanup:        true,
			CompressionEnabled: true,
		},
		Display: DisplaySettings{
			Theme:                 "light",
			Language:              "en-US",
			AutoRefresh:           true,
			RefreshIntervalMillis: 30000,
		},
	}
}

// APIStatus is the last observed connectivity state of the detection service.
// Recomputed every poll cycle, never persisted.
type APIStatus struct {
	Connected bool            `json:"isConnected"`
	Status    json.RawMessage `json:"status"`
	LastCheck int64           `json:"lastCheck"`
}

// SystemStats are derived from current camera/detection state.
type SystemStats struct {
	TotalCameras    int   `json:"totalCameras"`
	ActiveCameras   int   `json:"activeCameras"`
	TotalDetections int   `json:"totalDetections"`
	ViolationsToday int   `json:"violationsToday"`
	ComplianceRate  int   `json:"complianceRate"`
	LastUpdate      int64 `json:"lastUpdate"`
}
