package users

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/guard"
	"github.com/kleineLoesungen/userbase/internal/permissions"
	"github.com/kleineLoesungen/userbase/internal/sessions"
)

// Handler handles HTTP requests for accounts and authentication. Handlers
// are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service       Service
	sessions      sessions.Service
	perms         permissions.Service
	sessionTTL    time.Duration
	secureCookies bool
}

// NewHandler creates a new accounts handler. ttl and secureCookies control
// the session cookie written on login and registration.
func NewHandler(service Service, sessionSvc sessions.Service, permSvc permissions.Service, ttl time.Duration, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		sessions:      sessionSvc,
		perms:         permSvc,
		sessionTTL:    ttl,
		secureCookies: secureCookies,
	}
}

// Register creates an account and logs it in (POST /api/users/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	if err := h.openSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and opens a session (POST /api/users/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	if err := h.openSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Logout destroys the caller's session (POST /api/users/logout). Safe to
// call without one.
func (h *Handler) Logout(c echo.Context) error {
	if p, ok := guard.CurrentPrincipal(c); ok && p.SessionID != "" {
		if err := h.sessions.DestroySession(c.Request().Context(), p.SessionID); err != nil {
			return err
		}
	}
	sessions.ClearCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account with its effective capabilities
// (GET /api/users/me).
func (h *Handler) Me(c echo.Context) error {
	userID := guard.CurrentUserID(c)
	user, err := h.service.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	caps, err := h.perms.Resolve(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user":        user,
		"permissions": caps.Strings(),
	})
}

// UpdateMe changes the caller's email or password (PUT /api/users/me).
func (h *Handler) UpdateMe(c echo.Context) error {
	var req ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	user, err := h.service.UpdateProfile(c.Request().Context(), guard.CurrentUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// List returns all accounts (GET /api/users, admin only).
func (h *Handler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []User{}
	}
	return c.JSON(http.StatusOK, users)
}

// AdminCreate provisions an account (POST /api/users/admin, admin only).
func (h *Handler) AdminCreate(c echo.Context) error {
	var req AdminCreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	user, err := h.service.AdminCreate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// AdminDelete removes an account (DELETE /api/users/admin/:id, admin only).
func (h *Handler) AdminDelete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminResetPassword sets a new password for a user
// (POST /api/users/admin/:id/reset-password, admin only).
func (h *Handler) AdminResetPassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	req.UserID = id
	if err := h.service.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// openSession creates a session for the user and sets the cookie.
func (h *Handler) openSession(c echo.Context, userID int64) error {
	sessionID, err := h.sessions.CreateSession(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	sessions.SetCookie(c, sessionID, h.sessionTTL, h.secureCookies)
	return nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid id")
	}
	return id, nil
}
