package store

import (
	"github.com/google/uuid"

	"hardhat-shell/internal/model"
)

// AddDetection appends a completed detection at the head of the list (most
// recent first; list order follows completion order of the remote calls).
// Classification is violation iff the result contains at least one finding.
func (s *Store) AddDetection(source model.DetectionSource, cameraID string, result model.DetectionResult, imageURL string) model.Detection {
	now := s.now()

	classification := model.Compliance
	if len(result.Detections) > 0 {
		classification = model.Violation
	}

	d := model.Detection{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		Source:    source,
		CameraID:  cameraID,
		Result:    result,
		Type:      classification,
		Status:    model.DetectionPending,
		ImageURL:  imageURL,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detections = append([]model.Detection{d}, s.detections...)

	if cameraID != "" {
		for i := range s.cameras {
			if s.cameras[i].ID == cameraID {
				s.cameras[i].DetectionCount++
				ts := d.Timestamp
				s.cameras[i].LastDetection = &ts
				break
			}
		}
	}

	s.recomputeStatsLocked(now)
	return d
}

// ResolveDetection transitions a detection pending -> resolved. Any other
// transition is rejected.
func (s *Store) ResolveDetection(id string) (model.Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.detections {
		if s.detections[i].ID == id {
			if s.detections[i].Status != model.DetectionPending {
				return model.Detection{}, false
			}
			s.detections[i].Status = model.DetectionResolved
			return s.detections[i], true
		}
	}
	return model.Detection{}, false
}

func (s *Store) ListDetections() []model.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Detection, len(s.detections))
	copy(result, s.detections)
	return result
}
