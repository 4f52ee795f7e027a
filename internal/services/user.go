package services

import (
	"context"
	"time"

	"github.com/velotracker/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateIdentity(ctx context.Context, user types.User) (types.User, error)
	SetResetCode(ctx context.Context, email, code string, expires time.Time) error
	GetByEmailAndCode(ctx context.Context, email, code string) (types.User, error)
	ResetPassword(ctx context.Context, email, code, passwordHash string) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) UpdateIdentity(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.UpdateIdentity(ctx, user)
}

func (s *UserService) SetResetCode(ctx context.Context, email, code string, expires time.Time) error {
	return s.repo.SetResetCode(ctx, email, code, expires)
}

func (s *UserService) GetByEmailAndCode(ctx context.Context, email, code string) (types.User, error) {
	return s.repo.GetByEmailAndCode(ctx, email, code)
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, passwordHash string) error {
	return s.repo.ResetPassword(ctx, email, code, passwordHash)
}
