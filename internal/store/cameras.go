package store

import (
	"github.com/google/uuid"

	"hardhat-shell/internal/model"
)

type CameraInput struct {
	Name     string
	Location string
	Type     model.ConnectionType
	Source   string
	Status   model.CameraStatus
}

func (s *Store) AddCamera(in CameraInput) model.Camera {
	now := s.now()
	status := in.Status
	if status == "" {
		status = model.CameraOffline
	}

	cam := model.Camera{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Location:  in.Location,
		Type:      in.Type,
		Source:    in.Source,
		Status:    status,
		CreatedAt: now.UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = append(s.cameras, cam)
	s.recomputeStatsLocked(now)
	return cam
}

func (s *Store) RemoveCamera(id string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cameras {
		if c.ID == id {
			s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
			s.recomputeStatsLocked(now)
			return true
		}
	}
	return false
}

func (s *Store) SetCameraStatus(id string, status model.CameraStatus) (model.Camera, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cameras {
		if s.cameras[i].ID == id {
			s.cameras[i].Status = status
			s.recomputeStatsLocked(now)
			return s.cameras[i], true
		}
	}
	return model.Camera{}, false
}

func (s *Store) ToggleCameraRecording(id string) (model.Camera, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cameras {
		if s.cameras[i].ID == id {
			s.cameras[i].Recording = !s.cameras[i].Recording
			return s.cameras[i], true
		}
	}
	return model.Camera{}, false
}

func (s *Store) GetCamera(id string) (model.Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cameras {
		if c.ID == id {
			return c, true
		}
	}
	return model.Camera{}, false
}

func (s *Store) ListCameras() []model.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Camera, len(s.cameras))
	copy(result, s.cameras)
	return result
}
