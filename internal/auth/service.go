package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mapesa/internal/core"
	"mapesa/internal/log"
)

var (
	ErrEmptyCredentials   = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmailRequired      = errors.New("email is required")
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Empty reports whether either field is missing. Whitespace-only values
// count as present; they simply fail to match.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (core.User, error)
	Create(ctx context.Context, u core.NewUser) (core.User, error)
}

type Service struct {
	users      UserStore
	bcryptCost int
}

// NewService hashes new passwords at bcryptCost; zero selects
// bcrypt.DefaultCost. Existing hashes keep the cost they were made with.
func NewService(users UserStore, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, bcryptCost: bcryptCost}
}

// Login checks credentials against the stored bcrypt hash. Empty
// credentials are rejected before the store is consulted.
func (s *Service) Login(ctx context.Context, creds Credentials) (core.User, error) {
	if creds.Empty() {
		return core.User{}, ErrEmptyCredentials
	}

	user, err := s.users.GetByUsername(ctx, creds.Username)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Login failed", log.FieldComponent, log.ComponentAuth, "reason", "unknown user")
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("login: %w", err)
	}

	if !passwordMatches(user.Password, creds.Password) {
		slog.WarnContext(ctx, "Login failed", log.FieldComponent, log.ComponentAuth, "reason", "password mismatch", log.FieldUserID, user.ID)
		return core.User{}, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", log.FieldComponent, log.ComponentAuth, log.FieldOperation, log.OpLogin, log.FieldUserID, user.ID)

	return user, nil
}

// Register hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, creds Credentials, email string) (core.User, error) {
	if creds.Empty() {
		return core.User{}, ErrEmptyCredentials
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return core.User{}, ErrEmailRequired
	}

	hash, err := HashPassword(creds.Password, s.bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, core.NewUser{
		Username: creds.Username,
		Email:    email,
		Password: hash,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	return user, nil
}
