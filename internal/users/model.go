// Package users handles user accounts: registration, login, profile
// management, and admin provisioning. Passwords are stored as salted PBKDF2
// hashes (see internal/credentials); login never reveals whether the
// username or the password was wrong.
package users

import (
	"regexp"
	"time"

	"github.com/kleineLoesungen/userbase/internal/apperror"
)

// User is a registered account. This is the domain model used throughout
// the application; database scanning and JSON marshaling use it directly.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted at registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest holds the data submitted at login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileUpdateRequest holds a user's own profile changes. Password changes
// require the current password.
type ProfileUpdateRequest struct {
	Email           *string `json:"email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// AdminCreateRequest is admin-side user provisioning.
type AdminCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the admin-side password reset.
type ResetPasswordRequest struct {
	UserID      int64  `json:"userId"`
	NewPassword string `json:"newPassword"`
}

// --- Validation ---

// usernamePattern: 3-50 characters, letters, digits and underscores.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// emailPattern is a light shape check; deliverability is not our problem.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateUsername checks the username format.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return apperror.NewValidation("username must be 3-50 characters and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail checks the email format. Empty is allowed; email is
// optional.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return apperror.NewValidation("invalid email format")
	}
	return nil
}

// ValidatePassword checks minimum password strength.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperror.NewValidation("password must be at least 8 characters long")
	}
	return nil
}
