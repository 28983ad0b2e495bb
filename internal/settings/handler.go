package settings

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
)

// Handler handles HTTP requests for instance settings.
type Handler struct {
	repo Repository
}

// NewHandler creates a new settings handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns all settings (GET /api/settings, admin only).
func (h *Handler) List(c echo.Context) error {
	settings, err := h.repo.List(c.Request().Context())
	if err != nil {
		return err
	}
	if settings == nil {
		settings = []Setting{}
	}
	return c.JSON(http.StatusOK, settings)
}

// updateRequest is the payload for changing a setting.
type updateRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Update changes a setting (PUT /api/settings, admin only). Unknown keys
// are rejected; the set of settings is fixed.
func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Key == "" {
		return apperror.NewValidation("key is required")
	}
	if err := h.repo.Set(c.Request().Context(), req.Key, req.Value); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Registration reports whether self-registration is open
// (GET /api/settings/registration, public). Clients use it to decide
// whether to show a signup form.
func (h *Handler) Registration(c echo.Context) error {
	enabled := true
	value, found, err := h.repo.Get(c.Request().Context(), KeyRegistrationEnabled)
	if err != nil {
		return err
	}
	if found {
		if parsed, err := strconv.ParseBool(value); err == nil {
			enabled = parsed
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"registrationEnabled": enabled})
}
