package authmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/authclient"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type fakeRefresher struct {
	calls int
	resp  *authclient.RefreshResponse
	err   error
}

func (f *fakeRefresher) RefreshTokens(context.Context, string, string) (*authclient.RefreshResponse, error) {
	f.calls++
	return f.resp, f.err
}

func token(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(secret, "u-1", "bob", role, exp)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, h echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_Bearer(t *testing.T) {
	a := New(secret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, "user", time.Now().Add(time.Minute)))

	rec, c, err := run(t, a.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	p := Principal(c)
	assert.Equal(t, moderation.Principal{ID: "u-1", Username: "bob", Role: moderation.RoleUser}, p)
}

func TestRequireAuth_Missing(t *testing.T) {
	a := New(secret, nil)
	_, _, err := run(t, a.RequireAuth, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAuth_ExpiredBearerNotRefreshed(t *testing.T) {
	r := &fakeRefresher{}
	a := New(secret, r)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, "user", time.Now().Add(-time.Minute)))

	_, _, err := run(t, a.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Zero(t, r.calls)
}

func TestRequireAdmin_ForbidsUser(t *testing.T) {
	a := New(secret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, "user", time.Now().Add(time.Minute)))

	_, _, err := run(t, a.RequireAdmin, req)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestRequireAuth_CookieAutoRefresh(t *testing.T) {
	fresh := token(t, "user", time.Now().Add(time.Minute))
	r := &fakeRefresher{resp: &authclient.RefreshResponse{
		AccessToken:  fresh,
		RefreshToken: "rotated",
		AccessExp:    time.Now().Add(time.Minute).Unix(),
		RefreshExp:   time.Now().Add(time.Hour).Unix(),
	}}
	a := New(secret, r)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token(t, "user", time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old"})

	rec, c, err := run(t, a.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "u-1", Principal(c).ID)

	var names []string
	for _, ck := range rec.Result().Cookies() {
		names = append(names, ck.Name)
	}
	assert.ElementsMatch(t, []string{tokens.AccessCookie, tokens.RefreshCookie}, names)
}

func TestRequireAuth_CookieRefreshFails(t *testing.T) {
	r := &fakeRefresher{err: errors.New("revoked")}
	a := New(secret, r)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token(t, "user", time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old"})

	_, _, err := run(t, a.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set(echo.HeaderAuthorization, "bearer abc")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set(echo.HeaderAuthorization, "Basic abc")
	assert.Empty(t, BearerToken(req))
}
