package store

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"hardhat-shell/internal/model"
)

var (
	// ErrSelfModification rejects an admin session deactivating, demoting
	// or deleting its own user record.
	ErrSelfModification = errors.New("cannot modify your own user record")
	ErrDuplicateEmail   = errors.New("a user with this email already exists")
	ErrUserNotFound     = errors.New("user not found")
)

type UserInput struct {
	Name       string
	Email      string
	Phone      string
	Department string
	Role       model.Role
	Password   string
	Active     bool
}

// AddUser creates a user record. Email uniqueness is a soft check applied
// only at creation time.
func (s *Store) AddUser(in UserInput) (model.User, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			return model.User{}, ErrDuplicateEmail
		}
	}

	u := model.User{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Department: in.Department,
		Role:       in.Role,
		Active:     in.Active,
		Password:   in.Password,
		CreatedAt:  now.UnixMilli(),
	}
	s.users = append(s.users, u)
	return u, nil
}

// UserPatch is a partial update; nil fields are left untouched. Password is
// write-only: it is only replaced when a new value is supplied.
type UserPatch struct {
	Name       *string
	Email      *string
	Phone      *string
	Department *string
	Role       *model.Role
	Active     *bool
	Password   *string
}

func (s *Store) UpdateUser(actorID, id string, patch UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID != id {
			continue
		}

		if id == actorID {
			if patch.Active != nil && !*patch.Active {
				return model.User{}, ErrSelfModification
			}
			if patch.Role != nil && *patch.Role != s.users[i].Role {
				return model.User{}, ErrSelfModification
			}
		}

		if patch.Name != nil {
			s.users[i].Name = *patch.Name
		}
		if patch.Email != nil {
			s.users[i].Email = *patch.Email
		}
		if patch.Phone != nil {
			s.users[i].Phone = *patch.Phone
		}
		if patch.Department != nil {
			s.users[i].Department = *patch.Department
		}
		if patch.Role != nil {
			s.users[i].Role = *patch.Role
		}
		if patch.Active != nil {
			s.users[i].Active = *patch.Active
		}
		if patch.Password != nil && *patch.Password != "" {
			s.users[i].Password = *patch.Password
		}
		return s.users[i], nil
	}
	return model.User{}, ErrUserNotFound
}

func (s *Store) RemoveUser(actorID, id string) error {
	if id == actorID {
		return ErrSelfModification
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}

func (s *Store) ToggleUserActive(actorID, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			if id == actorID && s.users[i].Active {
				return model.User{}, ErrSelfModification
			}
			s.users[i].Active = !s.users[i].Active
			return s.users[i], nil
		}
	}
	return model.User{}, ErrUserNotFound
}

// RecordLogin bumps last-login bookkeeping on the user record matching the
// authenticated identity. Missing record is a no-op: the remote service, not
// this store, owns credentials.
func (s *Store) RecordLogin(email string) {
	if email == "" {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			ts := now.UnixMilli()
			s.users[i].LastLogin = &ts
			s.users[i].LoginCount++
			return
		}
	}
}

func (s *Store) ListUsers() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.User, len(s.users))
	copy(result, s.users)
	return result
}

func (s *Store) GetUser(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}
