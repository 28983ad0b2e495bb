package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/credentials"
	"github.com/kleineLoesungen/userbase/internal/database"
	"github.com/kleineLoesungen/userbase/internal/groups"
	"github.com/kleineLoesungen/userbase/internal/settings"
)

// --- Mock Repository ---

// mockUserRepo implements Repository for testing.
type mockUserRepo struct {
	createTxFn       func(ctx context.Context, q database.Querier, username string, email *string, hash string) (*User, error)
	findByIDFn       func(ctx context.Context, id int64) (*User, error)
	findByUsernameFn func(ctx context.Context, username string) (*User, error)
	usernameExistsFn func(ctx context.Context, username string) (bool, error)
	emailExistsFn    func(ctx context.Context, email string) (bool, error)
	countFn          func(ctx context.Context) (int64, error)
	deleteFn         func(ctx context.Context, id int64) error
	updatePasswordFn func(ctx context.Context, id int64, hash string) error
}

func (m *mockUserRepo) Create(ctx context.Context, username string, email *string, hash string) (*User, error) {
	return m.CreateTx(ctx, nil, username, email, hash)
}

func (m *mockUserRepo) CreateTx(ctx context.Context, q database.Querier, username string, email *string, hash string) (*User, error) {
	if m.createTxFn != nil {
		return m.createTxFn(ctx, q, username, email, hash)
	}
	return &User{ID: 1, Username: username, Email: email, PasswordHash: hash}, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 1, nil
}

func (m *mockUserRepo) CountTx(ctx context.Context, q database.Querier) (int64, error) {
	return m.Count(ctx)
}

func (m *mockUserRepo) List(ctx context.Context) ([]User, error) { return nil, nil }

func (m *mockUserRepo) UpdateEmail(ctx context.Context, id int64, email *string) error { return nil }

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock group collaborators ---

// mockGroupRepo implements groups.Repository; only the methods the account
// service touches are configurable.
type mockGroupRepo struct {
	findByNameTxFn func(ctx context.Context, tx database.Querier, name string) (int64, bool, error)
	addMemberTxFn  func(ctx context.Context, tx database.Querier, groupID, userID int64) error
}

func (m *mockGroupRepo) Create(ctx context.Context, name, description string, isPublic bool) (*groups.Group, error) {
	return nil, nil
}
func (m *mockGroupRepo) CreateTx(ctx context.Context, tx database.Querier, name, description string, isPublic bool) (int64, error) {
	return 0, nil
}
func (m *mockGroupRepo) FindByID(ctx context.Context, id int64) (*groups.Group, error) {
	return nil, apperror.NewNotFound("group not found")
}
func (m *mockGroupRepo) FindByName(ctx context.Context, name string) (*groups.Group, error) {
	return nil, apperror.NewNotFound("group not found")
}
func (m *mockGroupRepo) FindByNameTx(ctx context.Context, tx database.Querier, name string) (int64, bool, error) {
	if m.findByNameTxFn != nil {
		return m.findByNameTxFn(ctx, tx, name)
	}
	return 0, false, nil
}
func (m *mockGroupRepo) Update(ctx context.Context, id int64, name, description *string, isPublic *bool) (*groups.Group, error) {
	return nil, nil
}
func (m *mockGroupRepo) Delete(ctx context.Context, id int64) error             { return nil }
func (m *mockGroupRepo) List(ctx context.Context, publicOnly bool) ([]groups.Group, error) {
	return nil, nil
}
func (m *mockGroupRepo) AddMember(ctx context.Context, groupID, userID int64) error { return nil }
func (m *mockGroupRepo) AddMemberTx(ctx context.Context, tx database.Querier, groupID, userID int64) error {
	if m.addMemberTxFn != nil {
		return m.addMemberTxFn(ctx, tx, groupID, userID)
	}
	return nil
}
func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error { return nil }
func (m *mockGroupRepo) Members(ctx context.Context, groupID int64) ([]groups.Member, error) {
	return nil, nil
}
func (m *mockGroupRepo) UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]groups.Group, error) {
	return nil, nil
}
func (m *mockGroupRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	return false, nil
}
func (m *mockGroupRepo) CountMembers(ctx context.Context, groupID int64) (int, error) { return 0, nil }

// mockGroupService implements groups.Service; only EnsureNotLastAdmin matters here.
type mockGroupService struct {
	groups.Service
	ensureNotLastAdminFn func(ctx context.Context, userID int64) error
}

func (m *mockGroupService) EnsureNotLastAdmin(ctx context.Context, userID int64) error {
	if m.ensureNotLastAdminFn != nil {
		return m.ensureNotLastAdminFn(ctx, userID)
	}
	return nil
}

// mockSettingsRepo implements settings.Repository.
type mockSettingsRepo struct {
	values map[string]string
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}
func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error { return nil }
func (m *mockSettingsRepo) List(ctx context.Context) ([]settings.Setting, error) {
	return nil, nil
}

// fakeConn implements database.Connector far enough for WithTx.
type fakeConn struct{}

func (fakeConn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}
func (fakeConn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row { return nil }
func (fakeConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, errors.New("not implemented")
}
func (fakeConn) Type() string                                       { return "postgres" }
func (fakeConn) DB() *sql.DB                                        { return nil }
func (fakeConn) Acquire(ctx context.Context) (*database.Handle, error) {
	return nil, errors.New("not implemented")
}
func (fakeConn) WithTx(ctx context.Context, fn func(tx database.Querier) error) error {
	return fn(fakeConn{})
}
func (fakeConn) Ping(ctx context.Context) error { return nil }
func (fakeConn) Close() error                   { return nil }

// --- Test Helpers ---

type testDeps struct {
	repo      *mockUserRepo
	groupRepo *mockGroupRepo
	groupSvc  *mockGroupService
	settings  *mockSettingsRepo
}

func newTestService(d testDeps) Service {
	if d.repo == nil {
		d.repo = &mockUserRepo{}
	}
	if d.groupRepo == nil {
		d.groupRepo = &mockGroupRepo{}
	}
	if d.groupSvc == nil {
		d.groupSvc = &mockGroupService{}
	}
	if d.settings == nil {
		d.settings = &mockSettingsRepo{}
	}
	return NewService(d.repo, d.groupRepo, d.groupSvc, d.settings, fakeConn{})
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

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			countFn: func(ctx context.Context) (int64, error) { return 3, nil },
		},
	})

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected username alice, got %q", user.Username)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("password was not hashed")
	}
}

func TestRegister_FirstUserJoinsAdminGroup(t *testing.T) {
	var joinedGroup int64
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			countFn: func(ctx context.Context) (int64, error) { return 0, nil },
			createTxFn: func(ctx context.Context, q database.Querier, username string, email *string, hash string) (*User, error) {
				return &User{ID: 7, Username: username, PasswordHash: hash}, nil
			},
		},
		groupRepo: &mockGroupRepo{
			findByNameTxFn: func(ctx context.Context, tx database.Querier, name string) (int64, bool, error) {
				if name != groups.AdminGroupName {
					t.Errorf("looked up group %q, want %q", name, groups.AdminGroupName)
				}
				return 42, true, nil
			},
			addMemberTxFn: func(ctx context.Context, tx database.Querier, groupID, userID int64) error {
				joinedGroup = groupID
				if userID != 7 {
					t.Errorf("added user %d, want 7", userID)
				}
				return nil
			},
		},
		// Registration disabled must not stop the first user.
		settings: &mockSettingsRepo{values: map[string]string{
			settings.KeyRegistrationEnabled: "false",
		}},
	})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "root",
		Password: "first-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if joinedGroup != 42 {
		t.Errorf("first user joined group %d, want 42", joinedGroup)
	}
}

func TestRegister_DisabledRejectsLaterUsers(t *testing.T) {
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			countFn: func(ctx context.Context) (int64, error) { return 5, nil },
		},
		settings: &mockSettingsRepo{values: map[string]string{
			settings.KeyRegistrationEnabled: "false",
		}},
	})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "late",
		Password: "some-password",
	})
	assertAppError(t, err, 403)
}

func TestRegister_InvalidUsername(t *testing.T) {
	svc := newTestService(testDeps{})
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "x",
		Password: "some-password",
	})
	assertAppError(t, err, 422)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newTestService(testDeps{})
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "short",
	})
	assertAppError(t, err, 422)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			countFn:          func(ctx context.Context) (int64, error) { return 2, nil },
			usernameExistsFn: func(ctx context.Context, username string) (bool, error) { return true, nil },
		},
	})
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "some-password",
	})
	assertAppError(t, err, 409)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	hash, err := credentials.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
				return &User{ID: 1, Username: username, PasswordHash: hash}, nil
			},
		},
	})

	user, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("expected user 1, got %d", user.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := credentials.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
				return &User{ID: 1, Username: username, PasswordHash: hash}, nil
			},
		},
	})

	_, err = svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	assertAppError(t, err, 401)
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	svc := newTestService(testDeps{})

	_, unknownErr := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever1"})
	assertAppError(t, unknownErr, 401)

	// The message must not distinguish unknown users from bad passwords.
	var appErr *apperror.AppError
	errors.As(unknownErr, &appErr)
	if appErr.Message != "invalid username or password" {
		t.Errorf("enumeration-safe message expected, got %q", appErr.Message)
	}
}

// --- Delete Tests ---

func TestDelete_LastAdminBlocked(t *testing.T) {
	deleted := false
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*User, error) {
				return &User{ID: id, Username: "root"}, nil
			},
			deleteFn: func(ctx context.Context, id int64) error {
				deleted = true
				return nil
			},
		},
		groupSvc: &mockGroupService{
			ensureNotLastAdminFn: func(ctx context.Context, userID int64) error {
				return apperror.NewConflict("cannot remove the last administrator")
			},
		},
	})

	err := svc.Delete(context.Background(), 1)
	assertAppError(t, err, 409)
	if deleted {
		t.Error("user was deleted despite being the last administrator")
	}
}

func TestDelete_Success(t *testing.T) {
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*User, error) {
				return &User{ID: id}, nil
			},
		},
	})
	if err := svc.Delete(context.Background(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- ResetPassword Tests ---

func TestResetPassword_HashesNewPassword(t *testing.T) {
	var stored string
	svc := newTestService(testDeps{
		repo: &mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*User, error) {
				return &User{ID: id}, nil
			},
			updatePasswordFn: func(ctx context.Context, id int64, hash string) error {
				stored = hash
				return nil
			},
		},
	})

	err := svc.ResetPassword(context.Background(), ResetPasswordRequest{UserID: 2, NewPassword: "fresh-password"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !credentials.VerifyPassword("fresh-password", stored) {
		t.Error("stored hash does not verify against the new password")
	}
}
