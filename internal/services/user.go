package services

import (
	"context"

	"github.com/credstack/apiserver/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserRepository defines read operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	List(ctx context.Context, cursor, limit int) ([]types.User, int, error)
}

// UserService encapsulates user listing use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of users ordered by id after the cursor. The
// limit defaults to 20 and is capped at 100.
func (s *UserService) List(ctx context.Context, cursor, limit int) ([]types.User, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if cursor < 0 {
		cursor = 0
	}
	return s.repo.List(ctx, cursor, limit)
}
