package groups

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/sanitize"
)

// Service holds the business rules for group management: name validation,
// the protected Admins-group invariants, and the last-admin rule. Handlers
// call these methods -- they never touch the repository directly.
type Service interface {
	Create(ctx context.Context, input CreateRequest) (*Group, error)
	Update(ctx context.Context, input UpdateRequest) (*Group, error)
	Delete(ctx context.Context, groupID int64) error
	List(ctx context.Context, includePrivate bool) ([]Group, error)
	Members(ctx context.Context, groupID int64) ([]Member, error)
	UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]Group, error)

	AddMember(ctx context.Context, groupID, userID int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error

	// EnsureNotLastAdmin fails with a conflict when removing the given
	// user from the Admins group (or deleting the user outright) would
	// leave the system without any administrator. Every destructive path
	// that can shrink the Admins roster calls this one check.
	EnsureNotLastAdmin(ctx context.Context, userID int64) error
}

type service struct {
	repo Repository
}

// NewService creates a group service over the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Create validates and persists a new group. No group may take the
// protected group's name.
func (s *service) Create(ctx context.Context, input CreateRequest) (*Group, error) {
	name := sanitize.Plain(input.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if name == AdminGroupName {
		return nil, apperror.NewConflict("a group with this name already exists")
	}

	group, err := s.repo.Create(ctx, name, sanitize.Plain(input.Description), input.IsPublic)
	if err != nil {
		return nil, err
	}

	slog.Info("group created",
		slog.Int64("group_id", group.ID),
		slog.String("name", group.Name),
		slog.Bool("is_public", group.IsPublic),
	)
	return group, nil
}

// Update applies changes to a group, rejecting attempts to rename the
// protected group or flip it to public.
func (s *service) Update(ctx context.Context, input UpdateRequest) (*Group, error) {
	if input.Name != nil {
		cleaned := sanitize.Plain(*input.Name)
		if err := validateName(cleaned); err != nil {
			return nil, err
		}
		input.Name = &cleaned
	}
	if input.Description != nil {
		cleaned := sanitize.Plain(*input.Description)
		input.Description = &cleaned
	}

	current, err := s.repo.FindByID(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}

	if current.Name == AdminGroupName {
		if input.Name != nil && *input.Name != AdminGroupName {
			return nil, apperror.NewForbidden("the Admins group cannot be renamed")
		}
		if input.IsPublic != nil && *input.IsPublic {
			return nil, apperror.NewForbidden("the Admins group cannot be made public")
		}
	}

	group, err := s.repo.Update(ctx, input.GroupID, input.Name, input.Description, input.IsPublic)
	if err != nil {
		return nil, err
	}

	slog.Info("group updated",
		slog.Int64("group_id", group.ID),
		slog.String("name", group.Name),
	)
	return group, nil
}

// Delete removes a group. The protected group is not deletable.
func (s *service) Delete(ctx context.Context, groupID int64) error {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Name == AdminGroupName {
		return apperror.NewForbidden("the Admins group cannot be deleted")
	}

	if err := s.repo.Delete(ctx, groupID); err != nil {
		return err
	}

	slog.Info("group deleted",
		slog.Int64("group_id", groupID),
		slog.String("name", group.Name),
	)
	return nil
}

// List returns groups. Regular users see only public groups; admin callers
// pass includePrivate.
func (s *service) List(ctx context.Context, includePrivate bool) ([]Group, error) {
	groups, err := s.repo.List(ctx, !includePrivate)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing groups: %w", err))
	}
	return groups, nil
}

// Members returns a group's roster.
func (s *service) Members(ctx context.Context, groupID int64) ([]Member, error) {
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing members: %w", err))
	}
	return members, nil
}

// UserGroups returns the groups a user belongs to.
func (s *service) UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]Group, error) {
	groups, err := s.repo.UserGroups(ctx, userID, publicOnly)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing user groups: %w", err))
	}
	return groups, nil
}

// AddMember adds a user to a group. Idempotent.
func (s *service) AddMember(ctx context.Context, groupID, userID int64) error {
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		return err
	}

	if err := s.repo.AddMember(ctx, groupID, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("adding member: %w", err))
	}

	slog.Info("group member added",
		slog.Int64("group_id", groupID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// RemoveMember removes a user from a group. Removing an absent member is a
// no-op; removing the last member of the Admins group is refused.
func (s *service) RemoveMember(ctx context.Context, groupID, userID int64) error {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}

	if group.Name == AdminGroupName {
		if err := s.ensureNotLastMember(ctx, group.ID, userID); err != nil {
			return err
		}
	}

	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("removing member: %w", err))
	}

	slog.Info("group member removed",
		slog.Int64("group_id", groupID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// EnsureNotLastAdmin implements the last-admin rule for callers outside
// this package (user deletion).
func (s *service) EnsureNotLastAdmin(ctx context.Context, userID int64) error {
	admins, err := s.repo.FindByName(ctx, AdminGroupName)
	if err != nil {
		// No Admins group means nothing to protect (pre-sync bootstrap).
		if apperror.SafeCode(err) == 404 {
			return nil
		}
		return err
	}
	return s.ensureNotLastMember(ctx, admins.ID, userID)
}

// ensureNotLastMember refuses the removal of userID from the Admins group
// when they are its sole member.
func (s *service) ensureNotLastMember(ctx context.Context, adminGroupID, userID int64) error {
	isMember, err := s.repo.IsMember(ctx, adminGroupID, userID)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if !isMember {
		return nil
	}

	count, err := s.repo.CountMembers(ctx, adminGroupID)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if count <= 1 {
		return apperror.NewConflict("cannot remove the last administrator")
	}
	return nil
}

// validateName checks group name length.
func validateName(name string) error {
	if len(name) < 2 || len(name) > 100 {
		return apperror.NewValidation("group name must be between 2 and 100 characters")
	}
	return nil
}
