package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"goodads/internal/conf"
	"goodads/internal/repository"

	"github.com/sirupsen/logrus"
)

// LoggedInKey is the storage key holding the admin flag.
const LoggedInKey = "adminLoggedIn"

type AuthService struct {
	Storage repository.SessionStorage
	creds   conf.AdminConfig
	log     *logrus.Entry
}

func NewAuthService(storage repository.SessionStorage, creds conf.AdminConfig, log *logrus.Entry) *AuthService {
	return &AuthService{Storage: storage, creds: creds, log: log}
}

// Open loads the persisted flag for one browser client.
func (s *AuthService) Open(ctx context.Context, clientID string) (*Session, error) {
	sess := &Session{clientID: clientID, svc: s}

	v, err := s.Storage.Get(ctx, clientID, LoggedInKey)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return sess, fmt.Errorf("load session: %w", err)
	default:
		sess.loggedIn = v == "true"
	}
	return sess, nil
}

func (s *AuthService) matches(username, password string) bool {
	if s.creds.Username == "" || s.creds.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.creds.Password)) == 1
	return userOK && passOK
}

// Session is the admin login state of one browser client.
type Session struct {
	mu       sync.RWMutex
	clientID string
	loggedIn bool
	svc      *AuthService
}

func (s *Session) ClientID() string {
	return s.clientID
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// Login persists the flag before flipping it in memory, so a storage failure
// leaves the session logged out.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if !s.svc.matches(username, password) {
		s.svc.log.WithField("client", s.clientID).Warn("Admin login rejected")
		return ErrInvalidCredentials
	}

	if err := s.svc.Storage.Set(ctx, s.clientID, LoggedInKey, "true"); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.loggedIn = true
	s.mu.Unlock()

	s.svc.log.WithField("client", s.clientID).Info("Admin logged in")
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.loggedIn = false
	s.mu.Unlock()

	if err := s.svc.Storage.Remove(ctx, s.clientID, LoggedInKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.svc.log.WithField("client", s.clientID).Info("Admin logged out")
	return nil
}
