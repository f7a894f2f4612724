package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"hardhat-shell/internal/auth"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/remote"
)

// FailureKind classifies a login failure for the UI. Credentials problems and
// connectivity problems get distinct messages; everything else is lumped
// together.
type FailureKind string

const (
	InvalidCredentials FailureKind = "invalid_credentials"
	NetworkUnavailable FailureKind = "network_unavailable"
	UnknownFailure     FailureKind = "unknown"
)

type AuthError struct {
	Kind FailureKind
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed (%s): %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteAuthenticator is the slice of the remote client the session store
// needs. The concrete client lives in internal/remote.
type RemoteAuthenticator interface {
	Login(ctx context.Context, username, password string) (model.RemoteUser, error)
}

// Store holds the single authenticated session. At most one session exists at
// a time; a successful login replaces whatever was there before.
type Store struct {
	mu     sync.RWMutex
	file   string
	log    *zap.Logger
	tokens auth.TokenConfig
	now    func() time.Time

	current *model.Session
	token   string
}

type Options struct {
	File   string
	Logger *zap.Logger
	Tokens auth.TokenConfig
	Now    func() time.Time
}

func New(opts Options) *Store {
	s := &Store{
		file:   opts.File,
		log:    opts.Logger,
		tokens: opts.Tokens,
		now:    opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login authenticates against the remote service. On failure the stored
// session is left exactly as it was.
func (s *Store) Login(ctx context.Context, authn RemoteAuthenticator, username, password string) (model.Session, string, error) {
	user, err := authn.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, "", classify(err)
	}

	sess := model.Session{
		UserID:     strconv.FormatInt(user.ID, 10),
		Username:   user.Username,
		Name:       user.Name,
		Email:      user.Email,
		Role:       model.Role(user.Role),
		LoggedInAt: s.now().UnixMilli(),
	}

	token, err := auth.CreateToken(sess.UserID, string(sess.Role), s.tokens)
	if err != nil {
		return model.Session{}, "", &AuthError{Kind: UnknownFailure, Err: err}
	}

	s.mu.Lock()
	s.current = &sess
	s.token = token
	s.mu.Unlock()

	if err := s.persist(sess); err != nil {
		// The session is live either way; persistence only affects restore.
		s.log.Warn("session persist failed", zap.Error(err))
	}
	return sess, token, nil
}

func classify(err error) *AuthError {
	var rejected *remote.AuthRejectedError
	if errors.As(err, &rejected) {
		return &AuthError{Kind: InvalidCredentials, Err: err}
	}
	if errors.Is(err, remote.ErrRemoteUnavailable) {
		return &AuthError{Kind: NetworkUnavailable, Err: err}
	}
	return &AuthError{Kind: UnknownFailure, Err: err}
}

// Logout clears the session. Calling it with no session is fine.
func (s *Store) Logout() {
	s.mu.Lock()
	s.current = nil
	s.token = ""
	s.mu.Unlock()
	if s.file != "" {
		if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
			s.log.Warn("session blob remove failed", zap.String("path", s.file), zap.Error(err))
		}
	}
}

// Restore loads the persisted session blob, if any. A corrupt blob is erased
// and treated as absence.
func (s *Store) Restore() (model.Session, string, bool) {
	if s.file == "" {
		return model.Session{}, "", false
	}
	data, err := os.ReadFile(s.file)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("session load failed", zap.String("path", s.file), zap.Error(err))
		}
		return model.Session{}, "", false
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.UserID == "" {
		s.log.Warn("session blob corrupt, discarding", zap.String("path", s.file))
		_ = os.Remove(s.file)
		return model.Session{}, "", false
	}

	token, err := auth.CreateToken(sess.UserID, string(sess.Role), s.tokens)
	if err != nil {
		s.log.Warn("session token mint failed", zap.Error(err))
		return model.Session{}, "", false
	}

	s.mu.Lock()
	s.current = &sess
	s.token = token
	s.mu.Unlock()
	return sess, token, true
}

// Token returns the bearer token minted for the active session.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Current reports the active session, if there is one.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.Session{}, false
	}
	return *s.current, true
}

func (s *Store) persist(sess model.Session) error {
	if s.file == "" {
		return nil
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(s.file)+".tmp-*")
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
	return os.Rename(tmpName, s.file)
}
