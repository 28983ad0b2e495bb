package permissions

import (
	"context"
	"log/slog"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/groups"
)

// Service manages grants and answers capability questions. All checks are
// exact key matches; there is no wildcard or prefix expansion.
type Service interface {
	// Grant assigns a capability to a group. The key must be well-formed
	// but need not be declared in the registry: groups may hold keys no
	// feature consumes yet.
	Grant(ctx context.Context, groupID int64, key Key) (*Grant, error)

	// Revoke removes a grant by id. Removing admin.manage from the
	// administrator group is rejected, not silently skipped.
	Revoke(ctx context.Context, grantID int64) error

	// GroupGrants lists the grants held by a group.
	GroupGrants(ctx context.Context, groupID int64) ([]Grant, error)

	// Resolve returns the user's effective capability set: the union of
	// grants over all groups the user belongs to.
	Resolve(ctx context.Context, userID int64) (Set, error)

	// HasAny reports whether the user holds at least one of the given
	// capability keys. This is the check the HTTP guard runs per request.
	HasAny(ctx context.Context, userID int64, keys ...string) (bool, error)

	// Available lists the registered capabilities.
	Available(ctx context.Context) []Registered
}

type service struct {
	repo   Repository
	groups groups.Repository
}

// NewService wires grant management against the group store.
func NewService(repo Repository, groupRepo groups.Repository) Service {
	return &service{repo: repo, groups: groupRepo}
}

func (s *service) Grant(ctx context.Context, groupID int64, key Key) (*Grant, error) {
	if err := key.Validate(); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, err
	}

	grant, err := s.repo.Add(ctx, groupID, key)
	if err != nil {
		return nil, err
	}
	slog.Info("permission granted",
		"group_id", groupID,
		"permission", key,
		"registered", IsRegistered(key),
	)
	return grant, nil
}

func (s *service) Revoke(ctx context.Context, grantID int64) error {
	grant, err := s.repo.Find(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.Key == KeyAdminManage {
		group, err := s.groups.FindByID(ctx, grant.GroupID)
		if err != nil {
			return err
		}
		if group.Name == groups.AdminGroupName {
			return apperror.NewForbidden("cannot remove admin.manage from the administrator group")
		}
	}

	if err := s.repo.Remove(ctx, grantID); err != nil {
		return err
	}
	slog.Info("permission revoked", "grant_id", grantID, "group_id", grant.GroupID, "permission", grant.Key)
	return nil
}

func (s *service) GroupGrants(ctx context.Context, groupID int64) ([]Grant, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.GroupGrants(ctx, groupID)
}

func (s *service) Resolve(ctx context.Context, userID int64) (Set, error) {
	return s.repo.EffectiveCapabilities(ctx, userID)
}

func (s *service) HasAny(ctx context.Context, userID int64, keys ...string) (bool, error) {
	set, err := s.repo.EffectiveCapabilities(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if set.Has(Key(k)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) Available(ctx context.Context) []Registered {
	return Registry
}
