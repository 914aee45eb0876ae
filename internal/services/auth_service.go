package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Wikid82/gatekeeper/internal/models"
	"github.com/Wikid82/gatekeeper/internal/session"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidUsername    = errors.New("username must not be empty or contain whitespace")
)

// AuthService checks credentials against the user store and issues session
// tokens.
type AuthService struct {
	db     *gorm.DB
	tokens *session.TokenProvider
}

func NewAuthService(db *gorm.DB, tokens *session.TokenProvider) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

// Login returns a signed session token for valid credentials. Unknown users
// and wrong passwords produce the same error.
func (s *AuthService) Login(username, password string) (string, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}
	if !user.Enabled {
		return "", ErrAccountDisabled
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return "", fmt.Errorf("record login: %w", err)
	}

	return s.tokens.Issue(user.Username)
}

// CreateUser adds an enabled account.
func (s *AuthService) CreateUser(username, password string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	user := &models.User{Username: username, Enabled: true}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// ResetPassword replaces the password of an existing account and re-enables it.
func (s *AuthService) ResetPassword(username, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Enabled = true
	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" || strings.ContainsAny(username, " \t\r\n") {
		return ErrInvalidUsername
	}
	return nil
}
