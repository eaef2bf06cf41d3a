package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/middleware/csrf"
	"github.com/tradezone/marketplace/pkg/tokens"
)

func echoBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend", name)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := csrf.DefaultConfig()
	cfg.SkipPaths = []string{APIPrefix + "/auth/login"}

	e := echo.New()
	require.NoError(t, Register(e, &Deps{
		AuthURL:    echoBackend(t, "auth").URL,
		CatalogURL: echoBackend(t, "catalog").URL,
		OrderURL:   echoBackend(t, "order").URL,
		CSRFConfig: cfg,
	}))
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutesStripPrefix(t *testing.T) {
	e := newGateway(t)

	tests := []struct {
		method, path, backend, upstream string
	}{
		{http.MethodPost, "/api/v1/auth/login", "auth", "POST /auth/login"},
		{http.MethodGet, "/api/v1/catalog/listings/abc", "catalog", "GET /catalog/listings/abc"},
		{http.MethodGet, "/api/v1/orders", "order", "GET /orders"},
		{http.MethodPatch, "/api/v1/orders/1/status", "order", "PATCH /orders/1/status"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(e, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.backend, rec.Header().Get("X-Backend"))
			assert.Equal(t, tt.upstream, rec.Body.String())
		})
	}

	assert.Equal(t, http.StatusNotFound, serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)).Code)
}

func TestCSRFForCookieSessions(t *testing.T) {
	e := newGateway(t)

	get := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/listings", nil))
	token := get.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	post := func(headers map[string]string, cookies ...*http.Cookie) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader("{}"))
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return serve(e, req).Code
	}

	access := &http.Cookie{Name: tokens.AccessCookie, Value: "x"}
	xsrf := &http.Cookie{Name: "XSRF-TOKEN", Value: token}

	assert.Equal(t, http.StatusForbidden, post(map[string]string{"Origin": "http://example.com"}, access, xsrf))
	assert.Equal(t, http.StatusOK, post(map[string]string{"Origin": "http://example.com", "X-CSRF-Token": token}, access, xsrf))
	assert.Equal(t, http.StatusOK, post(map[string]string{"Authorization": "Bearer abc"}))
	assert.Equal(t, http.StatusOK, post(nil))
}

func TestUpstreamDownIsBadGateway(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	e := echo.New()
	require.NoError(t, Register(e, &Deps{AuthURL: dead.URL, CatalogURL: dead.URL, OrderURL: dead.URL}))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/listings", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream unavailable")
}
