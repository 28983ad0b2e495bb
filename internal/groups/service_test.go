package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/database"
)

// --- Mock Repository ---

// mockRepo implements Repository for testing.
type mockRepo struct {
	createFn       func(ctx context.Context, name, description string, isPublic bool) (*Group, error)
	findByIDFn     func(ctx context.Context, id int64) (*Group, error)
	findByNameFn   func(ctx context.Context, name string) (*Group, error)
	updateFn       func(ctx context.Context, id int64, name, description *string, isPublic *bool) (*Group, error)
	deleteFn       func(ctx context.Context, id int64) error
	removeMemberFn func(ctx context.Context, groupID, userID int64) error
	isMemberFn     func(ctx context.Context, groupID, userID int64) (bool, error)
	countMembersFn func(ctx context.Context, groupID int64) (int, error)
}

func (m *mockRepo) Create(ctx context.Context, name, description string, isPublic bool) (*Group, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, description, isPublic)
	}
	return &Group{ID: 1, Name: name, Description: description, IsPublic: isPublic}, nil
}

func (m *mockRepo) CreateTx(ctx context.Context, tx database.Querier, name, description string, isPublic bool) (int64, error) {
	return 1, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*Group, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("group not found")
}

func (m *mockRepo) FindByName(ctx context.Context, name string) (*Group, error) {
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, apperror.NewNotFound("group not found")
}

func (m *mockRepo) FindByNameTx(ctx context.Context, tx database.Querier, name string) (int64, bool, error) {
	return 0, false, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, name, description *string, isPublic *bool) (*Group, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, name, description, isPublic)
	}
	return &Group{ID: id}, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, publicOnly bool) ([]Group, error) { return nil, nil }

func (m *mockRepo) AddMember(ctx context.Context, groupID, userID int64) error { return nil }

func (m *mockRepo) AddMemberTx(ctx context.Context, tx database.Querier, groupID, userID int64) error {
	return nil
}

func (m *mockRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, groupID, userID)
	}
	return nil
}

func (m *mockRepo) Members(ctx context.Context, groupID int64) ([]Member, error) { return nil, nil }

func (m *mockRepo) UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]Group, error) {
	return nil, nil
}

func (m *mockRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	if m.isMemberFn != nil {
		return m.isMemberFn(ctx, groupID, userID)
	}
	return false, nil
}

func (m *mockRepo) CountMembers(ctx context.Context, groupID int64) (int, error) {
	if m.countMembersFn != nil {
		return m.countMembersFn(ctx, groupID)
	}
	return 0, nil
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// adminsGroup returns a FindByID stub serving the protected group.
func adminsGroup() func(ctx context.Context, id int64) (*Group, error) {
	return func(ctx context.Context, id int64) (*Group, error) {
		return &Group{ID: id, Name: AdminGroupName}, nil
	}
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	svc := NewService(&mockRepo{})
	group, err := svc.Create(context.Background(), CreateRequest{Name: "  Editors  ", Description: "content team", IsPublic: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if group.Name != "Editors" {
		t.Errorf("name not trimmed: %q", group.Name)
	}
}

func TestCreate_NameTooShort(t *testing.T) {
	svc := NewService(&mockRepo{})
	_, err := svc.Create(context.Background(), CreateRequest{Name: "x"})
	assertAppError(t, err, 422)
}

func TestCreate_ReservedAdminName(t *testing.T) {
	svc := NewService(&mockRepo{})
	_, err := svc.Create(context.Background(), CreateRequest{Name: AdminGroupName})
	assertAppError(t, err, 409)
}

// --- Protected group tests ---

func TestUpdate_AdminsCannotBeRenamed(t *testing.T) {
	svc := NewService(&mockRepo{findByIDFn: adminsGroup()})
	newName := "Superusers"
	_, err := svc.Update(context.Background(), UpdateRequest{GroupID: 1, Name: &newName})
	assertAppError(t, err, 403)
}

func TestUpdate_AdminsCannotBePublic(t *testing.T) {
	svc := NewService(&mockRepo{findByIDFn: adminsGroup()})
	public := true
	_, err := svc.Update(context.Background(), UpdateRequest{GroupID: 1, IsPublic: &public})
	assertAppError(t, err, 403)
}

func TestUpdate_AdminsDescriptionAllowed(t *testing.T) {
	svc := NewService(&mockRepo{
		findByIDFn: adminsGroup(),
		updateFn: func(ctx context.Context, id int64, name, description *string, isPublic *bool) (*Group, error) {
			return &Group{ID: id, Name: AdminGroupName, Description: *description}, nil
		},
	})
	desc := "the operators"
	group, err := svc.Update(context.Background(), UpdateRequest{GroupID: 1, Description: &desc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if group.Description != desc {
		t.Errorf("description not updated: %q", group.Description)
	}
}

func TestDelete_AdminsBlocked(t *testing.T) {
	svc := NewService(&mockRepo{findByIDFn: adminsGroup()})
	err := svc.Delete(context.Background(), 1)
	assertAppError(t, err, 403)
}

func TestDelete_RegularGroup(t *testing.T) {
	svc := NewService(&mockRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Group, error) {
			return &Group{ID: id, Name: "Editors"}, nil
		},
	})
	if err := svc.Delete(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Last-admin rule ---

func TestRemoveMember_LastAdminBlocked(t *testing.T) {
	svc := NewService(&mockRepo{
		findByIDFn:     adminsGroup(),
		isMemberFn:     func(ctx context.Context, groupID, userID int64) (bool, error) { return true, nil },
		countMembersFn: func(ctx context.Context, groupID int64) (int, error) { return 1, nil },
	})
	err := svc.RemoveMember(context.Background(), 1, 7)
	assertAppError(t, err, 409)
}

func TestRemoveMember_AdminWithPeersAllowed(t *testing.T) {
	svc := NewService(&mockRepo{
		findByIDFn:     adminsGroup(),
		isMemberFn:     func(ctx context.Context, groupID, userID int64) (bool, error) { return true, nil },
		countMembersFn: func(ctx context.Context, groupID int64) (int, error) { return 2, nil },
	})
	if err := svc.RemoveMember(context.Background(), 1, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveMember_NonMemberOfAdminsIsNoop(t *testing.T) {
	removed := false
	svc := NewService(&mockRepo{
		findByIDFn: adminsGroup(),
		isMemberFn: func(ctx context.Context, groupID, userID int64) (bool, error) { return false, nil },
		removeMemberFn: func(ctx context.Context, groupID, userID int64) error {
			removed = true
			return nil
		},
	})
	if err := svc.RemoveMember(context.Background(), 1, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Error("idempotent removal should still reach the repository")
	}
}

func TestEnsureNotLastAdmin_NoAdminGroupYet(t *testing.T) {
	// Before the registry sync has ever run there is no Admins group; the
	// rule has nothing to protect.
	svc := NewService(&mockRepo{})
	if err := svc.EnsureNotLastAdmin(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureNotLastAdmin_SoleAdminBlocked(t *testing.T) {
	svc := NewService(&mockRepo{
		findByNameFn: func(ctx context.Context, name string) (*Group, error) {
			return &Group{ID: 10, Name: AdminGroupName}, nil
		},
		isMemberFn:     func(ctx context.Context, groupID, userID int64) (bool, error) { return true, nil },
		countMembersFn: func(ctx context.Context, groupID int64) (int, error) { return 1, nil },
	})
	err := svc.EnsureNotLastAdmin(context.Background(), 1)
	assertAppError(t, err, 409)
}
