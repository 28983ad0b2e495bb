package users

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/credentials"
	"github.com/kleineLoesungen/userbase/internal/database"
	"github.com/kleineLoesungen/userbase/internal/groups"
	"github.com/kleineLoesungen/userbase/internal/settings"
)

// Service is the account business logic: registration, login, profile
// changes, and admin-side user management.
type Service interface {
	// Register creates a new account. The very first account bypasses the
	// registration toggle and automatically joins the administrator group.
	Register(ctx context.Context, input RegisterRequest) (*User, error)

	// Login verifies credentials. Unknown usernames and wrong passwords
	// produce the same error so accounts cannot be enumerated.
	Login(ctx context.Context, input LoginRequest) (*User, error)

	// Get returns a single user by id.
	Get(ctx context.Context, id int64) (*User, error)

	// UpdateProfile changes the caller's own email and, when the current
	// password is supplied and matches, the password.
	UpdateProfile(ctx context.Context, userID int64, input ProfileUpdateRequest) (*User, error)

	// List returns all users. Admin only; enforced at the route.
	List(ctx context.Context) ([]User, error)

	// AdminCreate provisions an account, ignoring the registration toggle.
	AdminCreate(ctx context.Context, input AdminCreateRequest) (*User, error)

	// ResetPassword replaces a user's password without the current one.
	ResetPassword(ctx context.Context, input ResetPasswordRequest) error

	// Delete removes an account and everything riding on it. The last
	// member of the administrator group cannot be deleted.
	Delete(ctx context.Context, userID int64) error
}

type service struct {
	repo     Repository
	groups   groups.Repository
	guard    groups.Service
	settings settings.Repository
	conn     database.Connector
}

// NewService wires the account logic. The groups repository is used for
// transactional membership work during registration; the groups service
// enforces the last-admin rule on deletion.
func NewService(repo Repository, groupRepo groups.Repository, groupSvc groups.Service, settingsRepo settings.Repository, conn database.Connector) Service {
	return &service{
		repo:     repo,
		groups:   groupRepo,
		guard:    groupSvc,
		settings: settingsRepo,
		conn:     conn,
	}
}

func (s *service) Register(ctx context.Context, input RegisterRequest) (*User, error) {
	if err := validateNewAccount(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	firstUser := count == 0

	if !firstUser {
		enabled, err := s.registrationEnabled(ctx)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, apperror.NewForbidden("registration is currently disabled")
		}
	}

	if err := s.checkAvailability(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	hash, err := credentials.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(input.Email)

	var user *User
	err = s.conn.WithTx(ctx, func(tx database.Querier) error {
		u, err := s.repo.CreateTx(ctx, tx, input.Username, email, hash)
		if err != nil {
			return err
		}
		user = u

		if !firstUser {
			return nil
		}
		adminID, found, err := s.groups.FindByNameTx(ctx, tx, groups.AdminGroupName)
		if err != nil {
			return err
		}
		if !found {
			// Capability sync has not run yet; membership is granted there.
			slog.Warn("admin group missing during first registration", "user_id", u.ID)
			return nil
		}
		return s.groups.AddMemberTx(ctx, tx, adminID, u.ID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username, "first_user", firstUser)
	return user, nil
}

func (s *service) Login(ctx context.Context, input LoginRequest) (*User, error) {
	if input.Username == "" || input.Password == "" {
		return nil, apperror.NewValidation("username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			// Same error as a bad password; do not leak account existence.
			return nil, apperror.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}
	if !credentials.VerifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized("invalid username or password")
	}

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, input ProfileUpdateRequest) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		if err := ValidateEmail(*input.Email); err != nil {
			return nil, err
		}
		email := normalizeEmail(*input.Email)
		if email != nil && (user.Email == nil || *user.Email != *email) {
			taken, err := s.repo.EmailExists(ctx, *email)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperror.NewConflict("email already in use")
			}
		}
		if err := s.repo.UpdateEmail(ctx, userID, email); err != nil {
			return nil, err
		}
	}

	if input.NewPassword != "" {
		if !credentials.VerifyPassword(input.CurrentPassword, user.PasswordHash) {
			return nil, apperror.NewUnauthorized("current password is incorrect")
		}
		if err := ValidatePassword(input.NewPassword); err != nil {
			return nil, err
		}
		hash, err := credentials.HashPassword(input.NewPassword)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
			return nil, err
		}
		slog.Info("user changed password", "user_id", userID)
	}

	return s.repo.FindByID(ctx, userID)
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *service) AdminCreate(ctx context.Context, input AdminCreateRequest) (*User, error) {
	if err := validateNewAccount(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	hash, err := credentials.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, input.Username, normalizeEmail(input.Email), hash)
	if err != nil {
		return nil, err
	}

	slog.Info("user created by admin", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *service) ResetPassword(ctx context.Context, input ResetPasswordRequest) error {
	if err := ValidatePassword(input.NewPassword); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, input.UserID); err != nil {
		return err
	}
	hash, err := credentials.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, input.UserID, hash); err != nil {
		return err
	}
	slog.Info("password reset by admin", "user_id", input.UserID)
	return nil
}

func (s *service) Delete(ctx context.Context, userID int64) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	if err := s.guard.EnsureNotLastAdmin(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	slog.Info("user deleted", "user_id", userID)
	return nil
}

// registrationEnabled reads the toggle; a missing row counts as enabled.
func (s *service) registrationEnabled(ctx context.Context) (bool, error) {
	value, found, err := s.settings.Get(ctx, settings.KeyRegistrationEnabled)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

func (s *service) checkAvailability(ctx context.Context, username, email string) error {
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return apperror.NewConflict("username already taken")
	}
	if email != "" {
		taken, err = s.repo.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return apperror.NewConflict("email already in use")
		}
	}
	return nil
}

func validateNewAccount(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

func normalizeEmail(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}
