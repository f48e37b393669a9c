// Package handler is the HTTP layer after the router.
//
// Handlers bind and validate requests through the validation package, call
// one service method, and write the JSON result. Failures are returned to
// the global error handler.
package handler

import (
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/service"
)

// Handlers groups every HTTP handler for the router.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	User    *UserHandler
	Post    *PostHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		User:    NewUserHandler(s, services.User),
		Post:    NewPostHandler(s, services.Post),
	}
}
