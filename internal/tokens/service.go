package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/credentials"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
	"github.com/kleineLoesungen/userbase/internal/sanitize"
)

// Resolution ceiling: 100 lookups per token per minute. The limiter is
// keyed by the token's digest, so invalid tokens burn their own budget and
// never another user's. Exported so main can size the shared limiter.
const (
	ResolveLimit  = 100
	ResolveWindow = time.Minute
)

// Service implements API token issuance, resolution, and revocation.
type Service interface {
	// Issue creates a token for the user and returns the plaintext secret
	// exactly once, alongside the persisted metadata.
	Issue(ctx context.Context, userID int64, input CreateRequest) (string, *Token, error)

	// ResolveToken maps a presented plaintext token to its owning user.
	// The boolean is false for unknown tokens. Exceeding the lookup
	// ceiling fails with apperror 429, a condition distinct from an
	// invalid token.
	ResolveToken(ctx context.Context, token string) (int64, bool, error)

	// List returns the user's tokens (metadata only, never secrets).
	List(ctx context.Context, userID int64) ([]Token, error)

	// Revoke deletes a token owned by the given user. Revoking another
	// user's token reports not-found, not forbidden, so token ids leak
	// nothing across accounts.
	Revoke(ctx context.Context, tokenID, userID int64) error
}

type service struct {
	repo    Repository
	limiter *ratelimit.Limiter
}

// NewService creates a token service. The limiter is the process-scoped
// instance owned by main.
func NewService(repo Repository, limiter *ratelimit.Limiter) Service {
	return &service{repo: repo, limiter: limiter}
}

func (s *service) Issue(ctx context.Context, userID int64, input CreateRequest) (string, *Token, error) {
	name := sanitize.Plain(input.Name)
	if name == "" {
		return "", nil, apperror.NewBadRequest("token name is required")
	}
	if len(name) > 100 {
		return "", nil, apperror.NewBadRequest("token name must be 100 characters or less")
	}

	plaintext, err := credentials.GenerateToken()
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("generating token: %w", err))
	}

	token, err := s.repo.Insert(ctx, userID, credentials.HashToken(plaintext), name)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("creating token: %w", err))
	}

	slog.Info("api token issued",
		slog.Int64("user_id", userID),
		slog.Int64("token_id", token.ID),
		slog.String("name", token.Name),
	)

	return plaintext, token, nil
}

func (s *service) ResolveToken(ctx context.Context, token string) (int64, bool, error) {
	digest := credentials.HashToken(token)

	if !s.limiter.Allow("token:" + digest) {
		return 0, false, apperror.NewRateLimited("rate limit exceeded, please try again later")
	}

	tokenID, userID, ok, err := s.repo.FindByDigest(ctx, digest)
	if err != nil {
		return 0, false, apperror.NewInternal(err)
	}
	if !ok {
		return 0, false, nil
	}

	// Stamp last-used without blocking the authorization decision. The
	// request context may end before the update lands, so detach from it.
	go func() {
		touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.TouchLastUsed(touchCtx, tokenID); err != nil {
			slog.Warn("failed to update token last_used_at",
				slog.Int64("token_id", tokenID),
				slog.Any("error", err),
			)
		}
	}()

	return userID, true, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]Token, error) {
	list, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return list, nil
}

func (s *service) Revoke(ctx context.Context, tokenID, userID int64) error {
	n, err := s.repo.Delete(ctx, tokenID, userID)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if n == 0 {
		return apperror.NewNotFound("token not found")
	}

	slog.Info("api token revoked",
		slog.Int64("user_id", userID),
		slog.Int64("token_id", tokenID),
	)
	return nil
}
