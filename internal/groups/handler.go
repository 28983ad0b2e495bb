package groups

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/guard"
)

// Handler handles HTTP requests for group management and membership.
type Handler struct {
	service Service
}

// NewHandler creates a new groups handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List returns all groups (GET /api/groups, admin only).
func (h *Handler) List(c echo.Context) error {
	groups, err := h.service.List(c.Request().Context(), true)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []Group{}
	}
	return c.JSON(http.StatusOK, groups)
}

// ListPublic returns the publicly discoverable groups
// (GET /api/groups/public).
func (h *Handler) ListPublic(c echo.Context) error {
	groups, err := h.service.List(c.Request().Context(), false)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []Group{}
	}
	return c.JSON(http.StatusOK, groups)
}

// Mine returns the groups the caller belongs to (GET /api/groups/mine).
func (h *Handler) Mine(c echo.Context) error {
	groups, err := h.service.UserGroups(c.Request().Context(), guard.CurrentUserID(c), false)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []Group{}
	}
	return c.JSON(http.StatusOK, groups)
}

// Create adds a group (POST /api/groups, admin only).
func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	group, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, group)
}

// Update changes a group's name, description, or visibility
// (PUT /api/groups/:id, admin only).
func (h *Handler) Update(c echo.Context) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	req.GroupID = id
	group, err := h.service.Update(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, group)
}

// Delete removes a group (DELETE /api/groups/:id, admin only).
func (h *Handler) Delete(c echo.Context) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Members lists a group's members (GET /api/groups/:id/members, admin only).
func (h *Handler) Members(c echo.Context) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	members, err := h.service.Members(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if members == nil {
		members = []Member{}
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember puts a user into a group (POST /api/groups/:id/members,
// admin only). Adding an existing member is a no-op.
func (h *Handler) AddMember(c echo.Context) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	var req MembershipRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.UserID <= 0 {
		return apperror.NewValidation("userId is required")
	}
	if err := h.service.AddMember(c.Request().Context(), id, req.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMember takes a user out of a group
// (DELETE /api/groups/:id/members/:userId, admin only).
func (h *Handler) RemoveMember(c echo.Context) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		return apperror.NewBadRequest("invalid user id")
	}
	if err := h.service.RemoveMember(c.Request().Context(), id, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func groupID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid group id")
	}
	return id, nil
}
