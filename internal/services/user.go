package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/farmtrack/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User, operator *types.Operator) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id int, hash string) error
	UpdateUsername(ctx context.Context, id int, username string) error
}

// UserService encapsulates profile use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the display username and returns the fresh record.
func (s *UserService) UpdateProfile(ctx context.Context, id int, username string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if err := s.repo.UpdateUsername(ctx, id, username); err != nil {
		return types.User{}, err
	}
	return s.repo.GetByID(ctx, id)
}
