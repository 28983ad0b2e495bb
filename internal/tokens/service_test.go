package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/credentials"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
)

// --- Mock Repository ---

// mockTokenRepo implements Repository for testing.
type mockTokenRepo struct {
	mu sync.Mutex

	insertFn       func(ctx context.Context, userID int64, digest, name string) (*Token, error)
	findByDigestFn func(ctx context.Context, digest string) (int64, int64, bool, error)
	deleteFn       func(ctx context.Context, tokenID, userID int64) (int64, error)

	insertedDigest string
	touched        []int64
}

func (m *mockTokenRepo) Insert(ctx context.Context, userID int64, digest, name string) (*Token, error) {
	m.mu.Lock()
	m.insertedDigest = digest
	m.mu.Unlock()
	if m.insertFn != nil {
		return m.insertFn(ctx, userID, digest, name)
	}
	return &Token{ID: 1, UserID: userID, Name: name}, nil
}

func (m *mockTokenRepo) FindByDigest(ctx context.Context, digest string) (int64, int64, bool, error) {
	if m.findByDigestFn != nil {
		return m.findByDigestFn(ctx, digest)
	}
	return 0, 0, false, nil
}

func (m *mockTokenRepo) List(ctx context.Context, userID int64) ([]Token, error) { return nil, nil }

func (m *mockTokenRepo) Delete(ctx context.Context, tokenID, userID int64) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tokenID, userID)
	}
	return 0, nil
}

func (m *mockTokenRepo) TouchLastUsed(ctx context.Context, tokenID int64) error {
	m.mu.Lock()
	m.touched = append(m.touched, tokenID)
	m.mu.Unlock()
	return nil
}

func newTestService(repo Repository, max int) (Service, *ratelimit.Limiter) {
	limiter := ratelimit.New(max, time.Minute)
	return NewService(repo, limiter), limiter
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

// --- Issue Tests ---

func TestIssue_ReturnsPlaintextStoresDigest(t *testing.T) {
	repo := &mockTokenRepo{}
	svc, limiter := newTestService(repo, 100)
	defer limiter.Stop()

	plaintext, token, err := svc.Issue(context.Background(), 1, CreateRequest{Name: "ci"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plaintext) != 43 {
		t.Errorf("plaintext length %d, want 43", len(plaintext))
	}
	if token.Name != "ci" {
		t.Errorf("token name %q, want ci", token.Name)
	}
	if repo.insertedDigest == plaintext {
		t.Error("plaintext was persisted instead of its digest")
	}
	if repo.insertedDigest != credentials.HashToken(plaintext) {
		t.Error("stored digest does not match the plaintext token")
	}
}

func TestIssue_EmptyNameRejected(t *testing.T) {
	svc, limiter := newTestService(&mockTokenRepo{}, 100)
	defer limiter.Stop()

	_, _, err := svc.Issue(context.Background(), 1, CreateRequest{Name: "   "})
	assertAppError(t, err, 400)
}

// --- Resolve Tests ---

func TestResolveToken_KnownToken(t *testing.T) {
	repo := &mockTokenRepo{
		findByDigestFn: func(ctx context.Context, digest string) (int64, int64, bool, error) {
			return 5, 42, true, nil
		},
	}
	svc, limiter := newTestService(repo, 100)
	defer limiter.Stop()

	userID, ok, err := svc.ResolveToken(context.Background(), "some-presented-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || userID != 42 {
		t.Errorf("resolved (%d, %v), want (42, true)", userID, ok)
	}
}

func TestResolveToken_UnknownTokenIsNotAnError(t *testing.T) {
	svc, limiter := newTestService(&mockTokenRepo{}, 100)
	defer limiter.Stop()

	userID, ok, err := svc.ResolveToken(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || userID != 0 {
		t.Errorf("resolved (%d, %v), want (0, false)", userID, ok)
	}
}

func TestResolveToken_RateLimited(t *testing.T) {
	repo := &mockTokenRepo{
		findByDigestFn: func(ctx context.Context, digest string) (int64, int64, bool, error) {
			return 5, 42, true, nil
		},
	}
	svc, limiter := newTestService(repo, 2)
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if _, _, err := svc.ResolveToken(context.Background(), "same-token"); err != nil {
			t.Fatalf("lookup %d: unexpected error: %v", i, err)
		}
	}

	// The ceiling counts per token, so a different token is unaffected.
	_, _, err := svc.ResolveToken(context.Background(), "same-token")
	assertAppError(t, err, 429)

	if _, _, err := svc.ResolveToken(context.Background(), "other-token"); err != nil {
		t.Fatalf("unrelated token was throttled: %v", err)
	}
}

// --- Revoke Tests ---

func TestRevoke_Success(t *testing.T) {
	repo := &mockTokenRepo{
		deleteFn: func(ctx context.Context, tokenID, userID int64) (int64, error) { return 1, nil },
	}
	svc, limiter := newTestService(repo, 100)
	defer limiter.Stop()

	if err := svc.Revoke(context.Background(), 5, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRevoke_OtherUsersTokenLooksMissing(t *testing.T) {
	repo := &mockTokenRepo{
		deleteFn: func(ctx context.Context, tokenID, userID int64) (int64, error) {
			// Owner scoping: the row exists but belongs to someone else.
			return 0, nil
		},
	}
	svc, limiter := newTestService(repo, 100)
	defer limiter.Stop()

	err := svc.Revoke(context.Background(), 5, 99)
	assertAppError(t, err, 404)
}
