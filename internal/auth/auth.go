// Package auth handles accounts, password hashing and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	// ErrUnauthorized is returned for missing, expired or wrong credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated user lacks permission
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPassword is returned when a password change is rejected
	ErrInvalidPassword = errors.New("invalid password")
)

// RegisterInput holds the fields of a new account
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Session is a freshly issued login
type Session struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Service registers users and issues session tokens
type Service struct {
	db  *db.DB
	cfg config.AuthConfig
	log *logrus.Logger
	now func() time.Time
}

// NewService creates a Service backed by database
func NewService(database *db.DB, cfg config.AuthConfig, log *logrus.Logger) *Service {
	return &Service{db: database, cfg: cfg, log: log, now: time.Now}
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates an active member account. A taken username or email yields db.ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, minPasswordLength)
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.db.CreateUser(ctx, &models.User{
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hash,
		FullName:       in.FullName,
		Role:           models.RoleMember,
		IsActive:       true,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login verifies credentials and issues a token. rememberMe selects the long TTL.
func (s *Service) Login(ctx context.Context, username, password string, rememberMe bool) (*Session, error) {
	user, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !CheckPassword(user.HashedPassword, password) {
		return nil, ErrUnauthorized
	}

	ttl := s.cfg.SessionTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	session := &Session{
		Token:     uuid.NewString(),
		TokenType: "bearer",
		ExpiresAt: s.now().Add(ttl).UTC(),
		User:      user,
	}
	if err := s.db.CreateSession(ctx, session.Token, user.ID, session.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "remember_me": rememberMe}).Debug("session issued")
	return session, nil
}

// Logout revokes token
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.db.DeleteSession(ctx, token)
}

// Authenticate returns the active user owning token
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.db.GetSessionUser(ctx, token, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// ChangePassword replaces a user's password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if !CheckPassword(user.HashedPassword, current) {
		return fmt.Errorf("%w: current password is incorrect", ErrInvalidPassword)
	}
	if current == next {
		return fmt.Errorf("%w: new password must differ from the current one", ErrInvalidPassword)
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, minPasswordLength)
	}

	hash, err := HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.db.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.HashedPassword = hash
	return nil
}

// PurgeExpired deletes sessions that are past their expiry
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.db.DeleteExpiredSessions(ctx, s.now())
}
