package service

import (
	"context"
	"strings"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
)

// Identity is what the auth layer knows about the caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

type UserService interface {
	// Provision creates the user on first sight and refreshes last_login_at.
	Provision(ctx context.Context, id Identity) (*model.User, error)
	Get(ctx context.Context, uid string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo, now: time.Now}
}

func (s *userService) Provision(ctx context.Context, id Identity) (*model.User, error) {
	if id.UID == "" {
		return nil, ErrForbidden
	}
	now := s.now()
	u := &model.User{
		UID:         id.UID,
		Email:       strings.TrimSpace(id.Email),
		Name:        strings.TrimSpace(id.Name),
		Role:        model.RoleUser,
		LastLoginAt: &now,
	}
	if u.Name == "" {
		u.Name, _, _ = strings.Cut(u.Email, "@")
	}
	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.repo.FindByUID(ctx, uid)
	return u, storeErr(err)
}
