package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrEmailExists = errors.New("email already exists")
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest, creatorID string) (*model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	GetAllUsers(ctx context.Context, role model.Role) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	FullName string     `json:"full_name" validate:"required"`
	Role     model.Role `json:"role" validate:"required,role"`
}

type UpdateUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password *string    `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	FullName string     `json:"full_name" validate:"required"`
	Role     model.Role `json:"role" validate:"required,role"`
	IsActive *bool      `json:"is_active"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, creatorID string) (*model.User, error) {
	// 1. Validate request
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// 2. Check if email already exists
	existing, _ := s.userRepo.FindByEmail(ctx, req.Email)
	if existing != nil {
		return nil, ErrEmailExists
	}

	// 3. Create user
	user := &model.User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: true,
	}
	user.CreatedBy = creatorID
	user.UpdatedBy = creatorID

	// 4. Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	// 5. Save to database
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, updaterID string) (*model.User, error) {
	// 1. Validate request
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// 2. Find existing user
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// 3. Check if email is being changed and already exists
	if req.Email != user.Email {
		existing, _ := s.userRepo.FindByEmail(ctx, req.Email)
		if existing != nil {
			return nil, ErrEmailExists
		}
	}

	// 4. Role or activation changes end the current session, since
	// privileges travel inside the token
	revoke := req.Role != user.Role
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		user.IsActive = *req.IsActive
		revoke = true
	}
	if revoke {
		user.TokenVersion = uuid.NewString()
	}

	// 5. Update user fields
	user.Email = req.Email
	user.FullName = req.FullName
	user.Role = req.Role
	user.UpdatedBy = updaterID

	// 6. Update password if provided
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
	}

	// 7. Save to database
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// 8. Reload and return
	return s.userRepo.FindByID(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// GetAllUsers lists users, optionally only those with the given role.
func (s *userService) GetAllUsers(ctx context.Context, role model.Role) ([]model.UserResponse, error) {
	var users []model.User
	var err error
	if role != "" {
		if !role.Valid() {
			return nil, validationError("unknown role %q", role)
		}
		users, err = s.userRepo.FindByRole(ctx, role, false)
	} else {
		users, err = s.userRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	response := user.ToResponse()
	return &response, nil
}
