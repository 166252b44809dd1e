package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/security"
)

// UserStore is the data access contract. Implementations return user.ErrNotFound for a
// missing row and user.ErrEmailTaken when the unique email constraint fires.
type UserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error)
	Update(ctx context.Context, id int64, changes user.Changes) (user.User, error)
	Delete(ctx context.Context, id int64) (user.User, error)
}

type UserService struct {
	store      UserStore
	bcryptCost int
	log        *slog.Logger
}

func NewUserService(store UserStore, bcryptCost int, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{store: store, bcryptCost: bcryptCost, log: log}
}

func (s *UserService) List(ctx context.Context) ([]user.PublicUser, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]user.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	return out, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (user.PublicUser, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return user.PublicUser{}, wrapUnlessDomain(err, "get user %d", id)
	}
	return u.Public(), nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.PublicUser, error) {
	u, err := s.store.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return user.PublicUser{}, wrapUnlessDomain(err, "get user by email")
	}
	return u.Public(), nil
}

// Create checks the email is free, hashes the password and inserts the row.
// The check and the insert are not atomic; the unique index catches what slips through.
func (s *UserService) Create(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error) {
	email := user.NormalizeEmail(req.Email)

	role := req.Role
	if role == "" {
		role = user.RoleUser
	}

	_, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return user.PublicUser{}, user.ErrEmailTaken
	case !errors.Is(err, user.ErrNotFound):
		return user.PublicUser{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := security.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		s.log.ErrorContext(ctx, "hash password failed", "err", err)
		return user.PublicUser{}, err
	}

	u, err := s.store.Create(ctx, req.Name, email, hash, role)
	if err != nil {
		return user.PublicUser{}, wrapUnlessDomain(err, "create user")
	}

	s.log.InfoContext(ctx, "user created", "user_id", u.ID, "email", u.Email)

	return u.Public(), nil
}

// Update applies only the supplied fields.
func (s *UserService) Update(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error) {
	if changes.Email != nil {
		email := user.NormalizeEmail(*changes.Email)
		changes.Email = &email

		existing, err := s.store.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return user.PublicUser{}, user.ErrEmailTaken
		case err != nil && !errors.Is(err, user.ErrNotFound):
			return user.PublicUser{}, fmt.Errorf("lookup email: %w", err)
		}
	}

	u, err := s.store.Update(ctx, id, changes)
	if err != nil {
		return user.PublicUser{}, wrapUnlessDomain(err, "update user %d", id)
	}

	return u.Public(), nil
}

// Delete removes the row and returns what it looked like.
func (s *UserService) Delete(ctx context.Context, id int64) (user.PublicUser, error) {
	u, err := s.store.Delete(ctx, id)
	if err != nil {
		return user.PublicUser{}, wrapUnlessDomain(err, "delete user %d", id)
	}
	return u.Public(), nil
}

func wrapUnlessDomain(err error, format string, args ...any) error {
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrEmailTaken) {
		return err
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
