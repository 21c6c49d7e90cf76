package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gistboard/core/internal/config"
	"github.com/gistboard/core/internal/pkg/jwt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

const tokenTTL = 24 * time.Hour

// Service authenticates the single configured admin account.
type Service struct {
	username     string
	passwordHash []byte
}

// NewService hashes the configured password once at startup so the plaintext
// never sits in memory past construction. An empty password leaves the admin
// account disabled.
func NewService(cfg config.AdminConfig) (*Service, error) {
	s := &Service{username: cfg.Username}
	if cfg.Password == "" {
		return s, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	s.passwordHash = hash
	return s, nil
}

// Login verifies credentials and mints a signed token.
func (s *Service) Login(username, password string) (string, error) {
	if len(s.passwordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return jwt.Sign(s.username, tokenTTL)
}
