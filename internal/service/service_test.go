package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/deppfellow/postboard/internal/errs"
	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/repository/repotest"
	"github.com/deppfellow/postboard/internal/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newServices(t *testing.T) (*UserService, *PostService, *repotest.Store) {
	t.Helper()
	logger := zerolog.Nop()
	s := &server.Server{Logger: &logger}
	store := repotest.New()
	return NewUserService(s, store.Users()), NewPostService(s, store.Posts()), store
}

func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, status, httpErr.Status)
	assert.Equal(t, code, httpErr.Code)
	assert.Error(t, httpErr.Cause)
}

func TestUserService_CreateUser(t *testing.T) {
	users, _, store := newServices(t)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, &model.CreateUserPayload{Username: "ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, &model.User{ID: 1, Username: "ada", Email: "ada@example.com"}, user)

	store.Err = errors.New("connection refused")
	_, err = users.CreateUser(ctx, &model.CreateUserPayload{Username: "ada", Email: "ada@example.com"})
	requireHTTPError(t, err, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")
}

func TestPostService_CreatePost(t *testing.T) {
	_, posts, store := newServices(t)
	ctx := context.Background()

	post, err := posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b")})
	require.NoError(t, err)
	assert.Equal(t, "a", post.Title)

	// An unknown author is a store failure like any other.
	_, err = posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b"), UserID: ptr(int32(42))})
	requireHTTPError(t, err, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")

	store.Err = errors.New("connection refused")
	_, err = posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b")})
	requireHTTPError(t, err, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")
}

func TestPostService_GetPosts(t *testing.T) {
	_, posts, store := newServices(t)
	ctx := context.Background()

	got, err := posts.GetPosts(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	created, err := posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b")})
	require.NoError(t, err)

	got, err = posts.GetPosts(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Post{*created}, got)

	store.Err = errors.New("connection refused")
	_, err = posts.GetPosts(ctx, created.ID)
	requireHTTPError(t, err, http.StatusNotFound, CodePostQueryFailed)
}

func TestPostService_UpdatePost(t *testing.T) {
	_, posts, store := newServices(t)
	ctx := context.Background()

	created, err := posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b")})
	require.NoError(t, err)

	updated, err := posts.UpdatePost(ctx, &model.UpdatePostPayload{ID: created.ID, Title: ptr("c"), Body: ptr("d")})
	require.NoError(t, err)
	assert.Equal(t, "c", updated.Title)
	assert.Equal(t, "d", updated.Body)

	_, err = posts.UpdatePost(ctx, &model.UpdatePostPayload{ID: 99, Title: ptr("c"), Body: ptr("d")})
	requireHTTPError(t, err, http.StatusNotFound, CodePostNotFound)
	assert.Equal(t, 1, store.PostCount())

	store.Err = errors.New("connection refused")
	_, err = posts.UpdatePost(ctx, &model.UpdatePostPayload{ID: created.ID, Title: ptr("c"), Body: ptr("d")})
	requireHTTPError(t, err, http.StatusNotFound, CodePostQueryFailed)
}

func TestPostService_DeletePost(t *testing.T) {
	_, posts, store := newServices(t)
	ctx := context.Background()

	created, err := posts.CreatePost(ctx, &model.CreatePostPayload{Title: ptr("a"), Body: ptr("b")})
	require.NoError(t, err)

	for _, id := range []int32{created.ID, created.ID, 12345} {
		msg, err := posts.DeletePost(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.PostDeletedMessage, msg.Message)
	}
	assert.Zero(t, store.PostCount())

	store.Err = errors.New("connection refused")
	_, err = posts.DeletePost(ctx, created.ID)
	requireHTTPError(t, err, http.StatusNotFound, CodePostQueryFailed)
}

func TestContextLogger(t *testing.T) {
	var serverBuf, requestBuf bytes.Buffer
	serverLogger := zerolog.New(&serverBuf)
	requestLogger := zerolog.New(&requestBuf)
	s := &server.Server{Logger: &serverLogger}

	contextLogger(context.Background(), s).Info().Msg("background")
	contextLogger(requestLogger.WithContext(context.Background()), s).Info().Msg("request")

	assert.Contains(t, serverBuf.String(), "background")
	assert.Contains(t, requestBuf.String(), "request")
	assert.NotContains(t, serverBuf.String(), "request")

	assert.NotPanics(t, func() {
		contextLogger(context.Background(), nil).Info().Msg("dropped")
	})
}
