package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timebudget/internal/models"
	"timebudget/internal/utils"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("invalid credentials input")
)

type userRepository interface {
	Create(ctx context.Context, input *models.User) error
	GetByName(ctx context.Context, name string) (*models.User, error)
}

type userService struct {
	repo userRepository
	auth *utils.AuthManager
}

func NewService(r userRepository, auth *utils.AuthManager) *userService {
	return &userService{repo: r, auth: auth}
}

func (s *userService) Register(ctx context.Context, input models.RegisterRequest) (*models.User, error) {
	if strings.TrimSpace(input.Name) == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: name and password are required", ErrValidation)
	}
	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, input models.LoginRequest) (string, error) {
	user, err := s.repo.GetByName(ctx, input.Name)
	if err != nil || !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return "", ErrUnauthorized
	}
	return s.auth.GenerateToken(user)
}
