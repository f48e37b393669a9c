package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/postboard/internal/config"
	"github.com/deppfellow/postboard/internal/errs"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(buf *bytes.Buffer) *server.Server {
	logger := zerolog.New(buf)
	return &server.Server{Config: config.Default(), Logger: &logger}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"http error", errs.NewNotFoundError("x", false, nil), http.StatusNotFound},
		{"wrapped http error", errors.Join(errors.New("ctx"), errs.NewTooManyRequestsError("x")), http.StatusTooManyRequests},
		{"echo error", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound},
		{"foreign key", &pgconn.PgError{Code: "23503", TableName: "posts"}, http.StatusBadRequest},
		{"no rows", sqlerr.NoRows("posts"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}

func TestGlobalErrorHandler_BareStatus(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf)
	global := NewGlobalMiddlewares(s)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/posts/1", nil), rec)
	c.Set(LoggerKey, s.Logger)

	cause := errors.New("relation \"posts\" does not exist")
	global.GlobalErrorHandler(errs.NewInternalServerError().WithCause(cause), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Contains(t, buf.String(), `relation \"posts\" does not exist`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestGlobalErrorHandler_ErrorBodies(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf)
	s.Config.Server.ErrorBodies = true
	global := NewGlobalMiddlewares(s)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/posts/1", nil), rec)

	global.GlobalErrorHandler(errs.NewNotFoundError("Post not found", false, nil), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":"NOT_FOUND","message":"Post not found","status":404,"override":false,"errors":null}`, rec.Body.String())
}

func TestGlobalErrorHandler_DriverErrorFallback(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf)
	s.Config.Server.ErrorBodies = true
	global := NewGlobalMiddlewares(s)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/posts", nil), rec)

	driverErr := &pgconn.PgError{Code: "23503", TableName: "posts", ConstraintName: "posts_user_id_fkey"}
	global.GlobalErrorHandler(driverErr, c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"POST_USER_NOT_FOUND"`)
	assert.NotContains(t, rec.Body.String(), "23503")
}

func TestGlobalErrorHandler_CommittedResponse(t *testing.T) {
	var buf bytes.Buffer
	global := NewGlobalMiddlewares(newTestServer(&buf))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "partial"))

	global.GlobalErrorHandler(errors.New("late failure"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestEnhanceContext(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf)
	enhancer := NewContextEnhancer(s)

	e := echo.New()
	e.Use(RequestID(), enhancer.EnhanceContext())

	var fromCtx *zerolog.Logger
	e.GET("/posts/:id", func(c echo.Context) error {
		GetLogger(c).Info().Msg("from echo context")
		fromCtx = zerolog.Ctx(c.Request().Context())
		fromCtx.Info().Msg("from request context")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/9", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	e.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"request_id":"req-42"`)
		assert.Contains(t, line, `"path":"/posts/:id"`)
	}
	require.NotNil(t, fromCtx)
	assert.NotEqual(t, zerolog.Disabled, fromCtx.GetLevel())
}

func TestGetLogger_WithoutEnhancer(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.NotPanics(t, func() { GetLogger(c).Info().Msg("dropped") })
	assert.Equal(t, zerolog.Disabled, GetLogger(c).GetLevel())
}
