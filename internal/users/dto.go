package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// UserList is one page of back-office users.
type UserList struct {
	Users      []UserDTO      `json:"users"`
	Pagination types.PageMeta `json:"pagination"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.UserRole
	IsActive     *bool
}

// CreateUserInput is the admin request to add a back-office user.
type CreateUserInput struct {
	Email    string         `json:"email" validate:"required,email,max=254"`
	Name     string         `json:"name" validate:"required,max=120"`
	Password string         `json:"password" validate:"required"`
	Role     enums.UserRole `json:"role" validate:"required"`
	IsActive *bool          `json:"isActive,omitempty"`
}

// UpdateUserInput patches a user; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string         `json:"name,omitempty" validate:"omitempty,max=120"`
	Role     *enums.UserRole `json:"role,omitempty"`
	IsActive *bool           `json:"isActive,omitempty"`
	Password *string         `json:"password,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		ID:           uuid.New(),
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Role:         c.Role,
		IsActive:     isActive,
	}
}
