// Package router builds the echo instance: the middleware chain, the global
// error handler and the route table.
package router

import (
	"net/http"

	"github.com/deppfellow/postboard/internal/handler"
	"github.com/deppfellow/postboard/internal/middleware"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/labstack/echo/v4"
)

// route binds one (method, path) pair to a handler.
type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

// apiRoutes is the static resource route table.
func apiRoutes(h *handler.Handlers) []route {
	return []route{
		{http.MethodPost, "/users", handler.Handle(h.User.Handler, h.User.CreateUser, http.StatusOK)},
		{http.MethodPost, "/posts", handler.Handle(h.Post.Handler, h.Post.CreatePost, http.StatusOK)},
		{http.MethodGet, "/posts/:id", handler.Handle(h.Post.Handler, h.Post.GetPosts, http.StatusOK)},
		{http.MethodPut, "/posts/:id", handler.Handle(h.Post.Handler, h.Post.UpdatePost, http.StatusOK)},
		{http.MethodDelete, "/posts/:id", handler.Handle(h.Post.Handler, h.Post.DeletePost, http.StatusOK)},
	}
}

// NewRouter returns the configured echo instance, ready to be passed to
// server.SetupHTTPServer.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Order matters: the request id and the New Relic transaction must exist
	// before the request logger is built, and the access log and metrics must
	// wrap everything that can fail.
	router.Use(
		middlewares.Global.Recover(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Metrics.Observe(),
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.Global.BodyLimit(),
	)

	registerSystemRoutes(router, s, h)

	for _, rt := range apiRoutes(h) {
		router.Add(rt.method, rt.path, rt.handler)
	}

	return router
}
