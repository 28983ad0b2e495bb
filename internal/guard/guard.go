// Package guard authenticates requests and enforces capability checks.
// It accepts two kinds of identity: an API bearer token in the
// Authorization header, or the browser session cookie. Bearer tokens are
// checked first; a missing or unknown bearer falls through to the cookie.
package guard

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/sessions"
)

// How the request authenticated.
const (
	ViaSession = "session"
	ViaToken   = "token"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID    int64
	Via       string
	SessionID string // set only when Via == ViaSession
}

// SessionResolver maps a session cookie value to a user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (int64, bool, error)
}

// TokenResolver maps a bearer token to a user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (int64, bool, error)
}

// CapabilityResolver answers whether a user holds any of the given
// capability keys. Keys are plain strings here; the permissions package
// owns the typed key model and implements this interface.
type CapabilityResolver interface {
	HasAny(ctx context.Context, userID int64, keys ...string) (bool, error)
}

// Guard bundles the resolvers behind the auth middleware.
type Guard struct {
	sessions SessionResolver
	tokens   TokenResolver
	caps     CapabilityResolver
}

// New builds a Guard from the session, token, and capability resolvers.
func New(sessionResolver SessionResolver, tokenResolver TokenResolver, capResolver CapabilityResolver) *Guard {
	return &Guard{
		sessions: sessionResolver,
		tokens:   tokenResolver,
		caps:     capResolver,
	}
}

const principalKey = "guard.principal"

// CurrentPrincipal returns the authenticated principal for the request,
// if any.
func CurrentPrincipal(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(principalKey).(*Principal)
	return p, ok
}

// CurrentUserID returns the authenticated user id. It is only valid on
// routes behind RequireAuth or RequirePermission.
func CurrentUserID(c echo.Context) int64 {
	p, ok := CurrentPrincipal(c)
	if !ok {
		return 0
	}
	return p.UserID
}

// Authenticate resolves the request identity when present and stores it on
// the context. It never rejects; pair it with RequireAuth or
// RequirePermission on routes that need an identity.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := g.resolve(c)
			if err != nil {
				return err
			}
			if p != nil {
				c.Set(principalKey, p)
			}
			return next(c)
		}
	}
}

// RequireAuth rejects unauthenticated requests with 401.
func (g *Guard) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentPrincipal(c); !ok {
				return apperror.NewUnauthorized("authentication required")
			}
			return next(c)
		}
	}
}

// RequirePermission rejects requests whose principal holds none of the
// given capabilities. Unauthenticated requests get 401, authenticated ones
// without a matching grant get 403.
func (g *Guard) RequirePermission(keys ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok {
				return apperror.NewUnauthorized("authentication required")
			}
			allowed, err := g.caps.HasAny(c.Request().Context(), p.UserID, keys...)
			if err != nil {
				return err
			}
			if !allowed {
				return apperror.NewForbidden("insufficient permissions")
			}
			return next(c)
		}
	}
}

// resolve tries the bearer token first, then the session cookie. An
// unknown bearer token does not block cookie auth, so a browser with a
// stale Authorization header keeps working. Rate-limit and storage errors
// do abort the request.
func (g *Guard) resolve(c echo.Context) (*Principal, error) {
	ctx := c.Request().Context()

	if token := bearerToken(c); token != "" {
		userID, ok, err := g.tokens.ResolveToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Principal{UserID: userID, Via: ViaToken}, nil
		}
	}

	if sessionID := sessions.FromCookie(c); sessionID != "" {
		userID, ok, err := g.sessions.ResolveSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Principal{UserID: userID, Via: ViaSession, SessionID: sessionID}, nil
		}
	}

	return nil, nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
