package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

const (
	defaultUserLimit = 20
	maxUserLimit     = 100
)

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// SignIn records a sign-in for user. New users always start with the user
// role; existing users only get their last login refreshed.
func (s *UserService) SignIn(ctx context.Context, user *models.User) (bool, error) {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return false, apperror.Validation("email is required")
	}

	now := time.Now().UTC()
	user.Role = models.RoleUser
	user.CreatedAt = now
	user.LastLoginAt = now

	inserted, err := s.users.Upsert(ctx, user)
	if err != nil {
		logger.Error("failed to upsert user", err, "email", user.Email)
		return false, err
	}
	if inserted {
		logger.Info("user created", "email", user.Email)
	}
	return inserted, nil
}

// List searches users by display name or email, newest first.
func (s *UserService) List(ctx context.Context, search string, limit int64) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultUserLimit
	}
	if limit > maxUserLimit {
		limit = maxUserLimit
	}
	return s.users.List(ctx, UserFilter{Search: strings.TrimSpace(search), Limit: limit})
}

// RoleOf returns the role of the user with email, defaulting to user.
func (s *UserService) RoleOf(ctx context.Context, email string) (models.Role, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user.Role == "" {
		return models.RoleUser, nil
	}
	return user.Role, nil
}

// RequireRole loads the caller and checks that it holds one of roles.
func (s *UserService) RequireRole(ctx context.Context, email string, roles ...models.Role) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Forbidden("forbidden access")
		}
		return nil, err
	}
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	for _, allowed := range roles {
		if role == allowed {
			return user, nil
		}
	}
	logger.Warning("role check failed", "email", email, "role", role, "required", roles)
	return nil, apperror.Forbidden("forbidden access")
}

func (s *UserService) SetRole(ctx context.Context, id, role string) error {
	r := models.Role(strings.TrimSpace(role))
	if !r.IsValid() {
		return apperror.Validation(fmt.Sprintf("invalid role %q", role))
	}
	if err := s.users.SetRole(ctx, id, r); err != nil {
		return err
	}
	logger.Info("user role updated", "userId", id, "role", r)
	return nil
}
