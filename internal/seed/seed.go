package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
)

// UserFinder looks up an account by email
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserCreator creates back office accounts
type UserCreator interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
}

// SettingsSeeder stores the default lesson durations
type SettingsSeeder interface {
	SeedDefaults(ctx context.Context) error
}

// Options configures the first administrator account
type Options struct {
	AdminEmail    string
	AdminPassword string
}

// CreateDefaultData makes sure an administrator and the lesson duration
// settings exist. Each step runs even if an earlier one failed.
func CreateDefaultData(ctx context.Context, users UserFinder, creator UserCreator, settings SettingsSeeder, opts Options, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (admin account, lesson durations)...")
	var finalErr error

	if err := settings.SeedDefaults(ctx); err != nil {
		lgr.Error().Err(err).Msg("Error seeding lesson durations")
		finalErr = errors.Join(finalErr, err)
	}

	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		lgr.Warn().Msg("No seed admin configured, skipping admin creation")
		return finalErr
	}

	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		lgr.Info().Msg("Admin user already exists, skipping creation")
	case errors.Is(err, apperrors.ErrUserNotFound):
		lgr.Info().Str("email", email).Msg("Creating default admin user...")
		admin, err := creator.CreateUser(ctx, &dto.CreateUserRequest{
			Email:     email,
			Password:  opts.AdminPassword,
			FirstName: "School",
			LastName:  "Administrator",
			RoleType:  models.RoleAdmin,
		})
		if err != nil {
			lgr.Error().Err(err).Msg("Error creating admin user")
			finalErr = errors.Join(finalErr, err)
		} else {
			lgr.Info().Int64("adminID", admin.ID).Msg("Default admin user created successfully")
		}
	default:
		lgr.Error().Err(err).Msg("Error checking if admin user exists")
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}
