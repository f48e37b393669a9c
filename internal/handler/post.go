package handler

import (
	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/service"
	"github.com/labstack/echo/v4"
)

type PostHandler struct {
	Handler
	postService *service.PostService
}

func NewPostHandler(s *server.Server, postService *service.PostService) *PostHandler {
	return &PostHandler{
		Handler:     NewHandler(s),
		postService: postService,
	}
}

// CreatePost serves POST /posts.
func (h *PostHandler) CreatePost(c echo.Context, payload *model.CreatePostPayload) (*model.Post, error) {
	return h.postService.CreatePost(c.Request().Context(), payload)
}

// GetPosts serves GET /posts/:id.
func (h *PostHandler) GetPosts(c echo.Context, payload *model.GetPostsPayload) ([]model.Post, error) {
	return h.postService.GetPosts(c.Request().Context(), payload.ID)
}

// UpdatePost serves PUT /posts/:id.
func (h *PostHandler) UpdatePost(c echo.Context, payload *model.UpdatePostPayload) (*model.Post, error) {
	return h.postService.UpdatePost(c.Request().Context(), payload)
}

// DeletePost serves DELETE /posts/:id.
func (h *PostHandler) DeletePost(c echo.Context, payload *model.DeletePostPayload) (*model.Message, error) {
	return h.postService.DeletePost(c.Request().Context(), payload.ID)
}
