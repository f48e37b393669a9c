// Package service sits between the handlers and the repositories.
//
// It receives validated payloads, calls exactly one repository method, and
// decides which HTTP status each store outcome maps to for its endpoint.
package service

import (
	"github.com/deppfellow/postboard/internal/repository"
	"github.com/deppfellow/postboard/internal/server"
)

type Services struct {
	User *UserService
	Post *PostService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		User: NewUserService(s, repos.User),
		Post: NewPostService(s, repos.Post),
	}, nil
}
