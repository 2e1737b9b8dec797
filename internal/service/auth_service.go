package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/domain"
	"customer-insights/internal/repository"
	"customer-insights/internal/session"
)

// AuthService validates logins and registrations against the credential store.
type AuthService interface {
	Login(ctx context.Context, username, password string) (session.State, error)
	Register(ctx context.Context, username, password string) error
}

type authService struct {
	users  repository.CredentialStore
	hasher PasswordHasher
	logger *logrus.Logger

	// registerMu makes the duplicate check and the save one step.
	registerMu sync.Mutex
}

func NewAuthService(users repository.CredentialStore, hasher PasswordHasher, logger *logrus.Logger) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &authService{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

// Login never tells an unknown user apart from a wrong password.
func (s *authService) Login(ctx context.Context, username, password string) (session.State, error) {
	username = domain.NormalizeUsername(username)
	password = strings.TrimSpace(password)

	users, err := s.users.Load(ctx)
	if err != nil {
		return session.State{}, fmt.Errorf("load users: %w", err)
	}

	for _, u := range users {
		if domain.NormalizeUsername(u.Username) != username {
			continue
		}
		if s.hasher.Verify(password, u.Password) {
			s.logger.WithField("user", username).Info("login succeeded")
			return session.LoggedIn(username), nil
		}
	}

	s.logger.WithField("user", username).Warn("login rejected")
	return session.State{}, domain.ErrInvalidCredentials
}

// Register stores a new user. It does not log the caller in.
func (s *authService) Register(ctx context.Context, username, password string) error {
	username = domain.NormalizeUsername(username)
	password = strings.TrimSpace(password)

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	users, err := s.users.Load(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if domain.NormalizeUsername(u.Username) == username {
			return domain.ErrUsernameTaken
		}
	}
	if username == "" || password == "" {
		return domain.ErrMissingField
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, domain.User{Username: username, Password: digest}); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.logger.WithField("user", username).Info("user registered")
	return nil
}
