package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/security"
)

type AuthService struct {
	store UserStore
	users *UserService
	log   *slog.Logger
}

func NewAuthService(store UserStore, users *UserService, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{store: store, users: users, log: log}
}

// Authenticate resolves credentials to a user. It returns user.ErrNotFound for an unknown
// email and user.ErrInvalidPassword when the hash does not match.
func (s *AuthService) Authenticate(ctx context.Context, req user.SignInRequest) (user.PublicUser, error) {
	u, err := s.store.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.PublicUser{}, err
		}
		return user.PublicUser{}, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := security.ComparePassword(req.Password, u.PasswordHash)
	if err != nil {
		s.log.ErrorContext(ctx, "compare password failed", "user_id", u.ID, "err", err)
		return user.PublicUser{}, err
	}

	if !ok {
		return user.PublicUser{}, user.ErrInvalidPassword
	}

	s.log.InfoContext(ctx, "user authenticated", "user_id", u.ID)

	return u.Public(), nil
}

func (s *AuthService) SignUp(ctx context.Context, req user.SignUpRequest) (user.PublicUser, error) {
	return s.users.Create(ctx, user.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
}
