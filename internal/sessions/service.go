package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kleineLoesungen/userbase/internal/credentials"
)

// Service manages the session lifecycle: creation at login, resolution on
// every request, destruction at logout, and periodic expiry sweeps.
type Service interface {
	// CreateSession opens a new session for the user and returns its
	// opaque identifier for the cookie.
	CreateSession(ctx context.Context, userID int64) (string, error)

	// ResolveSession maps a session identifier to its owning user. The
	// second return is false for unknown, expired, or deleted sessions.
	ResolveSession(ctx context.Context, sessionID string) (int64, bool, error)

	// DestroySession ends a session. Idempotent.
	DestroySession(ctx context.Context, sessionID string) error

	// SweepExpired reclaims expired rows once.
	SweepExpired(ctx context.Context) error
}

type service struct {
	repo Repository
	ttl  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a session service with the given lifetime (7 days in
// the default configuration).
func NewService(repo Repository, ttl time.Duration) Service {
	return &service{repo: repo, ttl: ttl, now: time.Now}
}

func (s *service) CreateSession(ctx context.Context, userID int64) (string, error) {
	id, err := credentials.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}

	session := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", err
	}
	return id, nil
}

func (s *service) ResolveSession(ctx context.Context, sessionID string) (int64, bool, error) {
	if sessionID == "" {
		return 0, false, nil
	}

	session, err := s.repo.Find(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}
	if session == nil {
		return 0, false, nil
	}
	return session.UserID, true, nil
}

func (s *service) DestroySession(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

func (s *service) SweepExpired(ctx context.Context) error {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("expired sessions swept", slog.Int64("removed", n))
	}
	return nil
}

// RunSweeper sweeps expired sessions on the given interval until ctx is
// cancelled. Meant to run in its own goroutine from main. Sweeping is
// housekeeping only: lookups filter expired sessions regardless.
func RunSweeper(ctx context.Context, svc Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One sweep right away so a long-stopped instance reclaims storage at
	// boot instead of an interval later.
	if err := svc.SweepExpired(ctx); err != nil {
		slog.Warn("session sweep failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ticker.C:
			if err := svc.SweepExpired(ctx); err != nil {
				slog.Warn("session sweep failed", slog.Any("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}
