package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	FullName     string     `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Role         Role       `gorm:"type:varchar(20);not null;index" json:"role" validate:"required,oneof=sales warehouse admin"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"` // For single session enforcement
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`                // For user presence
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// HasPrivilege checks if the user's role grants a specific privilege
func (u *User) HasPrivilege(code string) bool {
	for _, p := range rolePrivileges[u.Role] {
		if p == code {
			return true
		}
	}
	return false
}

// GetPrivilegeCodes returns all privilege codes granted by the user's role
func (u *User) GetPrivilegeCodes() []string {
	return PrivilegesFor(u.Role)
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	Privileges   []string   `json:"privileges"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		IsActive:     u.IsActive,
		RegisteredAt: u.CreatedAt,
		LastSeenAt:   u.LastSeenAt,
		Privileges:   u.GetPrivilegeCodes(),
	}
}
