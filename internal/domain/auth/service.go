package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"shoplist/internal/core/apperror"
	appctx "shoplist/internal/core/context"
	"shoplist/internal/core/id"
	"shoplist/internal/core/tx"
	"shoplist/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	PasswordMinLength int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PasswordMinLength: 8,
	}
}

// Service provides registration and login logic.
type Service struct {
	userRepo   UserRepository
	txManager  tx.Manager
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates a new auth service.
func NewService(userRepo UserRepository, txManager tx.Manager, jwtService *JWTService, config ServiceConfig) *Service {
	return &Service{
		userRepo:   userRepo,
		txManager:  txManager,
		jwtService: jwtService,
		config:     config,
	}
}

// Register registers a new user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if username == "" {
		return nil, apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username exists: %w", err)
	}
	if taken {
		return nil, apperror.NewDuplicate("user", "username", username)
	}
	taken, err = s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email exists: %w", err)
	}
	if taken {
		return nil, apperror.NewDuplicate("user", "email", email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(username, email, string(passwordHash))

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues an access token. Wrong username and
// wrong password produce the same error so the endpoint does not confirm
// which accounts exist.
func (s *Service) Login(ctx context.Context, creds Credentials) (*User, *TokenResponse, error) {
	invalid := apperror.NewUnauthorized("invalid username or password")

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, invalid
		}
		return nil, nil, err
	}
	if err := user.CanLogin(); err != nil {
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, invalid
	}

	user.RecordLogin()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		logger.Warn(ctx, "failed to record login", "user_id", user.ID, "error", err)
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	return user, &TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
	}, nil
}

// Me returns the account of the authenticated caller.
func (s *Service) Me(ctx context.Context) (*User, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	userID, err := id.Parse(user.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid user identity")
	}
	return s.userRepo.GetByID(ctx, userID)
}
