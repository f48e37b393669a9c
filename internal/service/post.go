package service

import (
	"context"

	"github.com/deppfellow/postboard/internal/errs"
	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/deppfellow/postboard/internal/sqlerr"
	"github.com/rs/zerolog"
)

// Error codes for id-addressed post operations. Both map to 404; the code
// tells a missing row apart from a statement that failed.
const (
	CodePostNotFound    = "POST_NOT_FOUND"
	CodePostQueryFailed = "POST_QUERY_FAILED"
)

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, payload *model.CreatePostPayload) (*model.Post, error)
	GetByID(ctx context.Context, id int32) ([]model.Post, error)
	Update(ctx context.Context, payload *model.UpdatePostPayload) (*model.Post, error)
	Delete(ctx context.Context, id int32) (int64, error)
}

type PostService struct {
	server *server.Server
	store  PostStore
}

func NewPostService(s *server.Server, store PostStore) *PostService {
	return &PostService{server: s, store: store}
}

// CreatePost stores a post. Any store failure, including an unknown
// user_id, is a 500.
func (s *PostService) CreatePost(ctx context.Context, payload *model.CreatePostPayload) (*model.Post, error) {
	post, err := s.store.Create(ctx, payload)
	if err != nil {
		return nil, errs.NewInternalServerError().WithCause(err)
	}

	contextLogger(ctx, s.server).Info().
		Str("event", "post_created").
		Int32("post_id", post.ID).
		Msg("post created")

	return post, nil
}

// GetPosts returns the posts with the given id, possibly none.
// A failed query is a 404.
func (s *PostService) GetPosts(ctx context.Context, id int32) ([]model.Post, error) {
	posts, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}

	if posts == nil {
		posts = []model.Post{}
	}

	return posts, nil
}

// UpdatePost replaces a post. A missing id and a failed statement are both
// 404 and distinguished by code.
func (s *PostService) UpdatePost(ctx context.Context, payload *model.UpdatePostPayload) (*model.Post, error) {
	post, err := s.store.Update(ctx, payload)
	if err != nil {
		return nil, postNotFound(err)
	}

	contextLogger(ctx, s.server).Info().
		Str("event", "post_updated").
		Int32("post_id", post.ID).
		Msg("post updated")

	return post, nil
}

// DeletePost removes a post. Success does not depend on whether a row
// existed; only a failed statement is an error (404).
func (s *PostService) DeletePost(ctx context.Context, id int32) (*model.Message, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}

	contextLogger(ctx, s.server).Debug().
		Int32("post_id", id).
		Int64("rows_affected", deleted).
		Msg("post delete executed")

	return &model.Message{Message: model.PostDeletedMessage}, nil
}

func postNotFound(err error) *errs.HTTPError {
	code := CodePostQueryFailed
	if sqlerr.IsNoRows(err) {
		code = CodePostNotFound
	}
	return errs.NewNotFoundError("Post not found", false, &code).WithCause(err)
}

// contextLogger prefers the request-scoped logger and falls back to the
// server's logger outside a request.
func contextLogger(ctx context.Context, s *server.Server) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return zerolog.Ctx(ctx)
}
