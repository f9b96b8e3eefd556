package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sokha/lunchpool/internal/auth"
	"github.com/sokha/lunchpool/internal/models"
)

// AuthService is the identity provider: registration, login and session
// token issuance. The group store consumes identities from it read-only.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	groups        *GroupService
}

// NewAuthService creates a new authentication service. groups may be nil in
// tests; when set, newly registered users are fed into its user directory.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, groups *GroupService) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		groups:        groups,
	}
}

// Session is the result of a successful register or login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new user account and returns a fresh session.
func (s *AuthService) Register(ctx context.Context, username, password string) (*Session, error) {
	slog.Info("Register request", "username", username)

	if username == "" {
		return nil, fmt.Errorf("username required: %w", ErrValidation)
	}

	user, err := s.authenticator.Register(ctx, username, password)
	if err != nil {
		slog.Error("Registration failed", "username", username, "error", err)
		if errors.Is(err, auth.ErrUsernameExists) || errors.Is(err, auth.ErrWeakPassword) {
			return nil, fmt.Errorf("%v: %w", err, ErrValidation)
		}
		return nil, &GatewayError{Op: "register", Err: err}
	}

	if s.groups != nil {
		s.groups.RegisterUser(user)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, &GatewayError{Op: "generate token", Err: err}
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	return &Session{Token: token, User: user}, nil
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	slog.Info("Login request", "username", username)

	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		slog.Warn("Login failed", "username", username)
		return nil, fmt.Errorf("%v: %w", err, ErrPermissionDenied)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, &GatewayError{Op: "generate token", Err: err}
	}

	slog.Info("User logged in", "user_id", user.ID)
	return &Session{Token: token, User: user}, nil
}
