package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertrade-service/papertrade_service/internal/domain/entities"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/config"
	"github.com/papertrade-service/papertrade_service/pkg/auth"
	apperrors "github.com/papertrade-service/papertrade_service/pkg/errors"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// UserRepository persists user accounts
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
}

// Service handles registration, login and profile management
type Service struct {
	users  UserRepository
	jwtCfg config.JWTConfig
	logger *logger.Logger
}

// NewService creates the auth service
func NewService(users UserRepository, jwtCfg config.JWTConfig, log *logger.Logger) *Service {
	return &Service{users: users, jwtCfg: jwtCfg, logger: log}
}

// Register creates a new account and returns an access token
func (s *Service) Register(ctx context.Context, req *entities.RegisterRequest) (*entities.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &entities.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.CtxInfo(ctx, "User registered", "user_id", user.ID, "email", email)
	return s.issueToken(user)
}

// Login verifies credentials and returns an access token. Unknown emails
// and wrong passwords produce the same error so accounts cannot be
// enumerated.
func (s *Service) Login(ctx context.Context, req *entities.LoginRequest) (*entities.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeUserNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	return s.issueToken(user)
}

// GetProfile returns the user's profile
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the user's display name
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName string) (*entities.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperrors.MissingField("display_name")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issueToken(user *entities.User) (*entities.AuthResponse, error) {
	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtCfg.Secret, s.jwtCfg.Issuer, s.jwtCfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &entities.AuthResponse{Token: token, User: user}, nil
}
