package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/usershub/internal/config"
	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/validation"
)

var ErrInvalidAdminConfig = errors.New("invalid admin config")

// AdminCreator is the slice of the user service the seeder needs.
type AdminCreator interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error)
	GetByEmail(ctx context.Context, email string) (user.PublicUser, error)
}

// EnsureAdminUser creates the configured bootstrap admin unless the email is already taken.
// It is a no-op when no admin credentials are configured.
func EnsureAdminUser(ctx context.Context, users AdminCreator, cfg config.Config, log *slog.Logger) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	if log == nil {
		log = slog.Default()
	}

	req := user.CreateUserRequest{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	}

	// same rules as POST /api/users
	if errs := validation.Check(&req); errs != nil {
		return false, fmt.Errorf("%w: %s %s", ErrInvalidAdminConfig, errs[0].Field, errs[0].Message)
	}

	_, err = users.Create(ctx, req)

	if errors.Is(err, user.ErrEmailTaken) {
		existing, lookupErr := users.GetByEmail(ctx, req.Email)
		if lookupErr != nil {
			return false, fmt.Errorf("lookup existing admin: %w", lookupErr)
		}
		if existing.Role != user.RoleAdmin {
			log.WarnContext(ctx, "ADMIN_EMAIL belongs to a non-admin account, no admin was seeded",
				"email", existing.Email, "role", existing.Role)
		}
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
