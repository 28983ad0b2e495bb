package tokens

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/guard"
)

// Handler handles HTTP requests for API tokens. All routes operate on the
// caller's own tokens.
type Handler struct {
	service Service
}

// NewHandler creates a new token handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create issues a new token (POST /api/tokens). The response carries the
// plaintext secret; it is not retrievable afterwards.
func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	plaintext, token, err := h.service.Issue(c.Request().Context(), guard.CurrentUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"token":    plaintext,
		"metadata": token,
	})
}

// List returns the caller's tokens (GET /api/tokens).
func (h *Handler) List(c echo.Context) error {
	tokens, err := h.service.List(c.Request().Context(), guard.CurrentUserID(c))
	if err != nil {
		return err
	}
	if tokens == nil {
		tokens = []Token{}
	}
	return c.JSON(http.StatusOK, tokens)
}

// Delete revokes one of the caller's tokens (DELETE /api/tokens/:id).
func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("invalid id")
	}
	if err := h.service.Revoke(c.Request().Context(), id, guard.CurrentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
