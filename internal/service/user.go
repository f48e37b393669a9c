package service

import (
	"context"

	"github.com/deppfellow/postboard/internal/errs"
	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/server"
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, payload *model.CreateUserPayload) (*model.User, error)
}

type UserService struct {
	server *server.Server
	store  UserStore
}

func NewUserService(s *server.Server, store UserStore) *UserService {
	return &UserService{server: s, store: store}
}

// CreateUser stores a user. Any store failure is a 500.
func (s *UserService) CreateUser(ctx context.Context, payload *model.CreateUserPayload) (*model.User, error) {
	user, err := s.store.Create(ctx, payload)
	if err != nil {
		return nil, errs.NewInternalServerError().WithCause(err)
	}

	contextLogger(ctx, s.server).Info().
		Str("event", "user_created").
		Int32("user_id", user.ID).
		Msg("user created")

	return user, nil
}
