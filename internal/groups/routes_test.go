package groups

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/guard"
	"github.com/kleineLoesungen/userbase/internal/sessions"
)

// --- Guard fakes ---

type routeSessions struct {
	byID map[string]int64
}

func (r *routeSessions) ResolveSession(_ context.Context, id string) (int64, bool, error) {
	uid, ok := r.byID[id]
	return uid, ok, nil
}

type routeTokens struct{}

func (routeTokens) ResolveToken(_ context.Context, _ string) (int64, bool, error) {
	return 0, false, nil
}

type routeCaps struct {
	byUser map[int64]map[string]bool
}

func (r *routeCaps) HasAny(_ context.Context, userID int64, keys ...string) (bool, error) {
	for _, k := range keys {
		if r.byUser[userID][k] {
			return true, nil
		}
	}
	return false, nil
}

// routeService stubs the two read paths the routed handlers hit; the
// embedded interface panics if an unexpected method is reached.
type routeService struct {
	Service
}

func (routeService) List(context.Context, bool) ([]Group, error) {
	return []Group{}, nil
}

func (routeService) UserGroups(context.Context, int64, bool) ([]Group, error) {
	return []Group{}, nil
}

// newRouteServer wires the group routes behind a guard the way the app
// does: user 1 holds the admin capability, user 2 holds nothing.
func newRouteServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if !c.Response().Committed {
			c.NoContent(apperror.SafeCode(err))
		}
	}

	g := guard.New(
		&routeSessions{byID: map[string]int64{"sess-admin": 1, "sess-member": 2}},
		routeTokens{},
		&routeCaps{byUser: map[int64]map[string]bool{1: {"admin.manage": true}}},
	)
	e.Use(g.Authenticate())

	RegisterRoutes(e, NewHandler(routeService{}), g, "admin.manage")
	return e
}

func doGet(e *echo.Echo, path, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessions.CookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_PublicListingRequiresAuthentication(t *testing.T) {
	e := newRouteServer()

	if rec := doGet(e, "/api/groups/public", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /api/groups/public: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := doGet(e, "/api/groups/public", "sess-member"); rec.Code != http.StatusOK {
		t.Errorf("authenticated /api/groups/public: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRoutes_AdminKeyGatesManagement(t *testing.T) {
	e := newRouteServer()

	if rec := doGet(e, "/api/groups", "sess-member"); rec.Code != http.StatusForbidden {
		t.Errorf("member /api/groups: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec := doGet(e, "/api/groups", "sess-admin"); rec.Code != http.StatusOK {
		t.Errorf("admin /api/groups: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := doGet(e, "/api/groups/mine", "sess-member"); rec.Code != http.StatusOK {
		t.Errorf("member /api/groups/mine: status = %d, want %d", rec.Code, http.StatusOK)
	}
}
