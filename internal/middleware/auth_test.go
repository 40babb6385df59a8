package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type stubUsers struct {
	users map[string]*model.User
	err   error
}

func (s *stubUsers) Provision(_ context.Context, id service.Identity) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id.UID]; ok {
		return u, nil
	}
	return &model.User{UID: id.UID, Email: id.Email, Role: model.RoleUser}, nil
}

func (s *stubUsers) Get(_ context.Context, uid string) (*model.User, error) {
	if u, ok := s.users[uid]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

func run(t *testing.T, mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, *model.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen *model.User
	err := mw(func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusNoContent)
	})(c)
	require.NoError(t, err)
	return rec, seen
}

func TestRequireAuth(t *testing.T) {
	users := &stubUsers{users: map[string]*model.User{
		"banned": {UID: "banned", IsBlocked: true},
	}}
	m := NewAuthMiddleware(DevVerifier{}, users, zap.NewNop())

	tests := []struct {
		name     string
		authz    string
		wantCode int
		wantUID  string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
		{"bad token", "Bearer |x@y", http.StatusUnauthorized, ""},
		{"blocked", "Bearer banned", http.StatusForbidden, ""},
		{"ok", "Bearer alice|alice@example.com|Alice", http.StatusNoContent, "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, u := run(t, m.RequireAuth, tt.authz)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantUID == "" {
				assert.Nil(t, u)
				return
			}
			require.NotNil(t, u)
			assert.Equal(t, tt.wantUID, u.UID)
		})
	}
}

func TestRequireAuthStoreDown(t *testing.T) {
	m := NewAuthMiddleware(DevVerifier{}, &stubUsers{err: service.ErrUnavailable}, zap.NewNop())
	rec, _ := run(t, m.RequireAuth, "Bearer alice")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	m := NewAuthMiddleware(DevVerifier{}, &stubUsers{}, zap.NewNop())

	rec, u := run(t, m.OptionalAuth, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, u)

	rec, u = run(t, m.OptionalAuth, "Bearer bob")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, u)
	assert.Equal(t, "bob", u.UID)
}

func TestAdminOnly(t *testing.T) {
	users := &stubUsers{users: map[string]*model.User{"root": {UID: "root", Role: model.RoleAdmin}}}
	m := NewAuthMiddleware(DevVerifier{}, users, zap.NewNop())
	chain := func(next echo.HandlerFunc) echo.HandlerFunc { return m.RequireAuth(AdminOnly(next)) }

	rec, _ := run(t, chain, "Bearer alice")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, u := run(t, chain, "Bearer root")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, u.IsAdmin())
}

func TestViewerSession(t *testing.T) {
	e := echo.New()
	mw := ViewerSession(time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	var first string
	require.NoError(t, mw(func(c echo.Context) error {
		first = SessionID(c)
		return nil
	})(e.NewContext(req, rec)))
	require.NotEmpty(t, first)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, first, cookies[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: first})
	rec = httptest.NewRecorder()
	var second string
	require.NoError(t, mw(func(c echo.Context) error {
		second = SessionID(c)
		return nil
	})(e.NewContext(req, rec)))
	assert.Equal(t, first, second)
	assert.Empty(t, rec.Result().Cookies())
}
