package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/validation"
)

var (
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
)

// UserService manages an existing account. Sign-up and login live in AuthService.
type UserService struct {
	userRepository repository.UserRepository
	authService    *AuthService
}

func NewUserService(userRepository repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepository: userRepository,
		authService:    authService,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	err = s.authService.ComparePassword(currentPassword, user.PasswordHash)
	if err != nil {
		return ErrInvalidCurrentPassword
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.userRepository.UpdatePassword(ctx, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// DeleteAccount removes the user. Habits, rewards, completions and the energy
// total cascade with it.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.userRepository.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
