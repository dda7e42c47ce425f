package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// existsCtx builds a context the way echo does when dispatching the
// email-exists route: concrete URL, route pattern and bound path param.
func existsCtx(e *echo.Echo, email string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/v1/users/exists/"+email, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/users/exists/:email")
	c.SetParamNames("email")
	c.SetParamValues(email)
	return c
}

func TestCacheKeyVariesWithPathParam(t *testing.T) {
	t.Parallel()

	e := echo.New()
	k1 := cacheKey("cache", existsCtx(e, "a@test.com"))
	k2 := cacheKey("cache", existsCtx(e, "b@test.com"))
	if k1 == k2 {
		t.Fatalf("cache key collision across path params: %q", k1)
	}

	k3 := cacheKey("cache", existsCtx(e, "a@test.com"))
	if k1 != k3 {
		t.Fatalf("cache key unstable for identical request: %q vs %q", k1, k3)
	}
}

func TestCacheKeyVariesWithQuery(t *testing.T) {
	t.Parallel()

	e := echo.New()
	mk := func(target string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		return e.NewContext(req, httptest.NewRecorder())
	}
	k1 := cacheKey("cache", mk("/v1/thing?page=1"))
	k2 := cacheKey("cache", mk("/v1/thing?page=2"))
	if k1 == k2 {
		t.Fatalf("cache key collision across query strings: %q", k1)
	}
}
