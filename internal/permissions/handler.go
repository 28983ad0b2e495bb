package permissions

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
)

// Handler handles HTTP requests for the capability registry and grants.
type Handler struct {
	service Service
}

// NewHandler creates a new permissions handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Available lists the registered capabilities (GET /api/permissions).
func (h *Handler) Available(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Available(c.Request().Context()))
}

// GroupGrants lists a group's grants (GET /api/permissions/groups/:id).
func (h *Handler) GroupGrants(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("invalid group id")
	}
	grants, err := h.service.GroupGrants(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if grants == nil {
		grants = []Grant{}
	}
	return c.JSON(http.StatusOK, grants)
}

// grantRequest is the payload for assigning a capability to a group.
type grantRequest struct {
	Permission string `json:"permission"`
}

// Grant assigns a capability to a group (POST /api/permissions/groups/:id).
func (h *Handler) Grant(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("invalid group id")
	}
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	grant, err := h.service.Grant(c.Request().Context(), id, Key(req.Permission))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, grant)
}

// Revoke removes a grant (DELETE /api/permissions/:grantId).
func (h *Handler) Revoke(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("grantId"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("invalid grant id")
	}
	if err := h.service.Revoke(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
