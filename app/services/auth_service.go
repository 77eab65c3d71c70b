package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/auth"
	"github.com/shashiranjanraj/cafe/pkg/logger"
)

type AuthService struct {
	users  *repositories.UserRepository
	tokens *auth.Tokens
}

func NewAuthService(users *repositories.UserRepository, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login checks the credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", fmt.Errorf("auth: find user: %w", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		logger.Audit(ctx, "auth.login_failed", "user_id", user.ID)
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return models.User{}, "", fmt.Errorf("auth: issue token: %w", err)
	}
	logger.Audit(ctx, "auth.login", "user_id", user.ID)
	return user, token, nil
}

// Register creates a user with a hashed password and an empty profile.
func (s *AuthService) Register(ctx context.Context, username, password string, role models.Role) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, invalid("username", "The username field is required.")
	}
	if len(password) < 8 {
		return models.User{}, invalid("password", "The password must be at least 8 characters.")
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return models.User{}, invalid("username", "The username has already been taken.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("auth: find user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return models.User{}, invalid("password", err.Error())
		}
		return models.User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user := models.User{Username: username, Password: hash, Role: role}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) User(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	return user, notFound("auth: find user", err)
}
