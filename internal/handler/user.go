package handler

import (
	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/service"
	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	Handler
	userService *service.UserService
}

func NewUserHandler(s *server.Server, userService *service.UserService) *UserHandler {
	return &UserHandler{
		Handler:     NewHandler(s),
		userService: userService,
	}
}

// CreateUser serves POST /users.
func (h *UserHandler) CreateUser(c echo.Context, payload *model.CreateUserPayload) (*model.User, error) {
	return h.userService.CreateUser(c.Request().Context(), payload)
}
