package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.RoleInfo    `json:"role"`       // Direct role object for Redux
	Privileges []string           `json:"privileges"` // Flat privileges array for easy checking
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.RoleInfo    `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	userRepo    repository.UserRepository
	tokens      *jwt.Manager
	idleTimeout time.Duration
	events      *event.Fanout
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, idleTimeout time.Duration, events *event.Fanout) AuthService {
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		idleTimeout: idleTimeout,
		events:      events,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens.
	// LastSeenAt is stamped too so the new session is not idle on arrival.
	now := time.Now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	// 5. Generate JWT token with TokenVersion
	privileges := user.GetPrivilegeCodes()
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, string(user.Role), privileges, user.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       model.InfoFor(user.Role),
		Privileges: privileges,
	}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return validationError("new password must be at least 6 characters")
	}

	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return ErrUserNotFound
	}

	// 2. Verify old password
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}

	// 3. Set new password
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}

	// 4. Invalidate existing sessions
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

// ValidateToken checks the signature, then the account state: active,
// same token version as the last login, not idle for too long.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	// A missing LastSeenAt means the session never heartbeated; force login.
	if user.LastSeenAt == nil || time.Since(*user.LastSeenAt) > s.idleTimeout {
		return nil, ErrSessionTimeout
	}

	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       model.InfoFor(user.Role),
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	// 1. Update timestamp di DB
	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		return err
	}

	// 2. Broadcast status "online" ke semua client
	s.events.Emit(context.WithoutCancel(ctx), event.UserPresence, userID.String(), event.PresencePayload{
		UserID:     userID.String(),
		Status:     "online",
		LastSeenAt: time.Now(),
	})
	return nil
}
