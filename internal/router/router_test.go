package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/postboard/internal/config"
	"github.com/deppfellow/postboard/internal/handler"
	"github.com/deppfellow/postboard/internal/metrics"
	"github.com/deppfellow/postboard/internal/repository/repotest"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router *echo.Echo
	store  *repotest.Store
	server *server.Server
}

func newTestApp(t *testing.T, configure ...func(*config.Config)) *testApp {
	t.Helper()

	cfg := config.Default()
	cfg.Database.URL = "postgres://unused"
	cfg.Server.CORSAllowedOrigins = []string{"*"}
	for _, fn := range configure {
		fn(cfg)
	}

	logger := zerolog.Nop()
	s := &server.Server{
		Config:  cfg,
		Logger:  &logger,
		Metrics: metrics.NewCollector(prometheus.NewRegistry()),
	}

	store := repotest.New()
	services := &service.Services{
		User: service.NewUserService(s, store.Users()),
		Post: service.NewPostService(s, store.Posts()),
	}

	return &testApp{
		router: NewRouter(s, handler.NewHandlers(s, services)),
		store:  store,
		server: s,
	}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Table(t *testing.T) {
	app := newTestApp(t)

	registered := make(map[string]bool)
	for _, r := range app.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /users",
		"POST /posts",
		"GET /posts/:id",
		"PUT /posts/:id",
		"DELETE /posts/:id",
		"GET /status",
		"GET /metrics",
		"GET /openapi.json",
		"GET /docs",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/users", `{"username":"ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"ada","email":"ada@example.com"}`, rec.Body.String())

	rec = app.do(http.MethodPost, "/posts", `{"title":"a","body":"b","user_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"title":"a","body":"b","user_id":1}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/posts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"title":"a","body":"b","user_id":1}]`, rec.Body.String())

	rec = app.do(http.MethodDelete, "/posts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post deleted successfully"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/posts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdatePost(t *testing.T) {
	app := newTestApp(t)

	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/users", `{"username":"ada","email":"a@b"}`).Code)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/posts", `{"title":"a","body":"b","user_id":1}`).Code)

	t.Run("replaces every field", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/posts/1", `{"title":"new","body":"text"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":1,"title":"new","body":"text","user_id":null}`, rec.Body.String())

		rec = app.do(http.MethodGet, "/posts/1", "")
		assert.JSONEq(t, `[{"id":1,"title":"new","body":"text","user_id":null}]`, rec.Body.String())
	})

	t.Run("body id cannot retarget the update", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/posts/1", `{"id":7,"title":"x","body":"y"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":1,"title":"x","body":"y","user_id":null}`, rec.Body.String())
	})

	t.Run("missing id is 404 and creates nothing", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/posts/42", `{"title":"x","body":"y"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, 1, app.store.PostCount())
	})
}

func TestDeleteMissingPost(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodDelete, "/posts/42", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post deleted successfully"}`, rec.Body.String())
}

func TestCreatePost_EmptyStringsAndNoAuthor(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/posts", `{"title":"","body":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"title":"","body":"","user_id":null}`, rec.Body.String())
}

func TestStoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create user", http.MethodPost, "/users", `{"username":"a","email":"b"}`, http.StatusInternalServerError},
		{"create post", http.MethodPost, "/posts", `{"title":"a","body":"b"}`, http.StatusInternalServerError},
		{"get posts", http.MethodGet, "/posts/1", "", http.StatusNotFound},
		{"update post", http.MethodPut, "/posts/1", `{"title":"a","body":"b"}`, http.StatusNotFound},
		{"delete post", http.MethodDelete, "/posts/1", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.store.Err = errors.New("connection refused")

			rec := app.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestCreatePost_UnknownAuthor(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/posts", `{"title":"a","body":"b","user_id":99}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, app.store.PostCount())
}

func TestInputShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed json", http.MethodPost, "/users", `{"username":`},
		{"empty username", http.MethodPost, "/users", `{"username":"","email":"a@b"}`},
		{"missing email", http.MethodPost, "/users", `{"username":"ada"}`},
		{"missing title", http.MethodPost, "/posts", `{"body":"b"}`},
		{"title wrong type", http.MethodPost, "/posts", `{"title":1,"body":"b"}`},
		{"user_id wrong type", http.MethodPost, "/posts", `{"title":"a","body":"b","user_id":"1"}`},
		{"non-integer id", http.MethodGet, "/posts/abc", ""},
		{"out of range id", http.MethodDelete, "/posts/4294967296", ""},
		{"update missing body field", http.MethodPut, "/posts/1", `{"title":"a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			rec := app.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestErrorBodies(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.ErrorBodies = true
	})

	rec := app.do(http.MethodPut, "/posts/42", `{"title":"x","body":"y"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, service.CodePostNotFound, body["code"])
	assert.EqualValues(t, http.StatusNotFound, body["status"])

	rec = app.do(http.MethodPost, "/users", `{"email":"a@b"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)

	app.store.Err = errors.New("password authentication failed")
	rec = app.do(http.MethodPost, "/users", `{"username":"a","email":"b"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, app.do(http.MethodPatch, "/posts/1", "").Code)
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/posts/1", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 1
		cfg.Server.RateBurst = 1
	})

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/posts/1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodGet, "/posts/1", "").Code)

	// System endpoints are exempt.
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/metrics", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	app.do(http.MethodGet, "/posts/1", "")
	app.do(http.MethodGet, "/posts/2", "")
	app.do(http.MethodGet, "/posts/abc", "")
	app.do(http.MethodGet, "/nope", "")

	rec := app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `postboard_http_requests_total{method="GET",route="/posts/:id",status="200"} 2`)
	assert.Contains(t, body, `postboard_http_requests_total{method="GET",route="/posts/:id",status="400"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
	assert.NotContains(t, body, `route="/nope"`)
}

func TestHealth(t *testing.T) {
	t.Run("database unavailable", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodGet, "/status", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
		assert.Contains(t, body["checks"], "database")
	})

	t.Run("checks disabled", func(t *testing.T) {
		app := newTestApp(t, func(cfg *config.Config) {
			cfg.Observability.HealthChecks.Enabled = false
		})

		rec := app.do(http.MethodGet, "/status", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})
}

func TestDocs(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc.Paths, "/users")
	assert.Contains(t, doc.Paths, "/posts")
	assert.Contains(t, doc.Paths["/posts/{id}"], "delete")

	rec = app.do(http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "/openapi.json")
}
