// Package groups provides the group and membership half of the
// group/permission store: named collections of users that carry capability
// grants, with the protected Admins group's structural invariants enforced
// at the mutation boundary.
package groups

import "time"

// AdminGroupName is the name of the protected, system-managed group. It is
// created on startup if absent and can never be deleted, renamed, or made
// public.
const AdminGroupName = "Admins"

// Group is a named bundle of capability grants and/or a public membership
// roster. Non-public groups exist purely to carry grants; public groups are
// additionally discoverable by regular users.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// MemberCount is populated by listing queries, not stored.
	MemberCount int `json:"memberCount,omitempty"`
}

// Member is a user's membership in a group, joined with display fields.
type Member struct {
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	Email    *string   `json:"email,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateRequest is the payload for creating a group.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdateRequest is the payload for updating a group. Pointer fields
// distinguish "not provided" from zero values.
type UpdateRequest struct {
	GroupID     int64   `json:"groupId"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// MembershipRequest is the payload for adding or removing a member.
type MembershipRequest struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}
