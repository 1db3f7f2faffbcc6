package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketPulse/pkg/http/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitRequest struct {
	Limit int `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

type itemsHandler struct{}

func (itemsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/items", func(c echo.Context) error {
		req := &limitRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req.Limit)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("asset %d not found", 9))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("raw"))
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("kaboom")
	})
}

func serve(t *testing.T, s *Server, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServerHealthz(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}})
	rec := serve(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidationDefaultsAndBounds(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}})

	rec := serve(t, s, http.MethodGet, "/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50.0, decode(t, rec)["data"])

	rec = serve(t, s, http.MethodGet, "/items?limit=501", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	errs := body["data"].([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_LTE", first["code"])
	assert.Equal(t, "limit", first["field"])

	rec = serve(t, s, http.MethodGet, "/items?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppErrorResponseStatus(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}})

	rec := serve(t, s, http.MethodGet, "/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	assert.Contains(t, rec.Body.String(), "asset 9 not found")

	rec = serve(t, s, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}})
	rec := serve(t, s, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}}, WithCORS(true, "http://dash.local"))

	rec := serve(t, s, http.MethodOptions, "/items", map[string]string{echo.HeaderOrigin: "http://dash.local"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dash.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(t, s, http.MethodGet, "/items", map[string]string{echo.HeaderOrigin: "http://evil.local"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

type countingAllower struct{ left int }

func (a *countingAllower) Allow(string, float64, float64) bool {
	a.left--
	return a.left >= 0
}

func TestRateLimitMiddleware(t *testing.T) {
	s := NewServer([]Handler{itemsHandler{}})
	s.Echo().Use(middleware.RateLimit(&countingAllower{left: 1}, 1, 1))

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/items", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, s, http.MethodGet, "/items", nil).Code)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ok") == "1" {
			assert.Equal(t, "marketpulse-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(`{"price":1.5}`))
			return
		}
		http.Error(w, strings.Repeat("x", 2000), http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("marketpulse-test"))

	var out struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, c.GetJSON(context.Background(), &RequestOptions{
		URL:         srv.URL,
		QueryParams: map[string][]string{"ok": {"1"}},
	}, &out))
	assert.Equal(t, 1.5, out.Price)

	err := c.GetJSON(context.Background(), &RequestOptions{URL: srv.URL}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Len(t, se.Body, 512)
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"not a number"}`))
	}))
	defer srv.Close()

	var out struct {
		Price float64 `json:"price"`
	}
	err := NewClient().GetJSON(context.Background(), &RequestOptions{URL: srv.URL}, &out)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	var se *StatusError
	assert.False(t, errors.As(err, &se))

	err = NewClient(WithTimeout(time.Second)).GetJSON(context.Background(), &RequestOptions{URL: "http://127.0.0.1:1"}, &out)
	require.Error(t, err)
	assert.False(t, errors.As(err, &de))
}
