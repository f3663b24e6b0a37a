package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/models/dto"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/shopspring/decimal"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

var (
	ErrUsernameRequired   = errors.New("must provide username")
	ErrPasswordRequired   = errors.New("must provide password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
)

// Service owns the registration and login rules.
type Service struct {
	users       storage.UserStore
	initialCash decimal.Decimal
}

// NewService constructs the service. New accounts start with initialCash.
func NewService(users storage.UserStore, initialCash decimal.Decimal) *Service {
	return &Service{users: users, initialCash: initialCash}
}

// Register creates an account after validating the form.
func (s *Service) Register(ctx context.Context, form dto.RegisterForm) (models.User, error) {
	username := strings.TrimSpace(form.Username)
	switch {
	case username == "":
		return models.User{}, ErrUsernameRequired
	case form.Password == "":
		return models.User{}, ErrPasswordRequired
	case form.Password != form.Confirmation:
		return models.User{}, ErrPasswordMismatch
	case len(form.Password) > maxPasswordBytes:
		return models.User{}, ErrPasswordTooLong
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, username, hash, s.initialCash)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user when the credentials match. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, form dto.LoginForm) (models.User, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if form.Password == "" {
		return models.User{}, ErrPasswordRequired
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, form.Password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}
