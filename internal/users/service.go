package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// Service manages back-office accounts.
type Service interface {
	Create(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	List(ctx context.Context, page pagination.Page) (*UserList, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error)
}

type service struct {
	repo     *Repository
	password config.PasswordConfig
	logg     *logger.Logger
}

// NewService constructs the user management service.
func NewService(repo *Repository, password config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, password: password, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user")
	}
	if !input.Role.IsValid() {
		return nil, fieldError("role", "must be admin or staff")
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Role:         input.Role,
		IsActive:     input.IsActive,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user.created")
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, page pagination.Page) (*UserList, error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := &UserList{
		Users:      make([]UserDTO, 0, len(rows)),
		Pagination: types.NewPageMeta(page.Number, page.Limit, total),
	}
	for i := range rows {
		out.Users = append(out.Users, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fieldError("name", "is required")
		}
		user.Name = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, fieldError("role", "must be admin or staff")
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Password != nil {
		hash, err := s.hash(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return FromModel(user), nil
}

// Delete removes a user. Admins cannot delete their own account.
func (s *service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if id == actorID {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete your own account")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user.deleted")
	return nil
}

// EnsureBootstrapAdmin creates the first admin when the users table is empty.
// It reports whether an account was created.
func (s *service) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	if total > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, CreateUserInput{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     enums.UserRoleAdmin,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	s.logg.Info(s.logg.WithField(ctx, "email", email), "user.bootstrap_admin_created")
	return true, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) hash(password string) (string, error) {
	if err := security.ValidatePassword(password); err != nil {
		return "", fieldError("password", err.Error())
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
