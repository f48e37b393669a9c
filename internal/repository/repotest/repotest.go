// Package repotest provides in-memory stand-ins for the Postgres
// repositories. They return the same error kinds: a missing row on update
// is sqlerr.NoRows, an unknown user_id is a foreign key violation, and Err
// simulates a statement that fails to execute.
package repotest

import (
	"context"
	"sync"

	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store holds users and posts. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	users    map[int32]model.User
	posts    map[int32]model.Post
	nextUser int32
	nextPost int32

	// Err, when set, is returned by every operation.
	Err error
}

func New() *Store {
	return &Store{
		users: make(map[int32]model.User),
		posts: make(map[int32]model.Post),
	}
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Posts returns a PostRepository view of the store.
func (s *Store) Posts() *PostRepository { return &PostRepository{s: s} }

// PostCount returns the number of stored posts.
func (s *Store) PostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func (s *Store) fail() error {
	return s.Err
}

func (s *Store) checkUser(userID *int32) error {
	if userID == nil {
		return nil
	}
	if _, ok := s.users[*userID]; ok {
		return nil
	}
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23503",
		Message:        `insert or update on table "posts" violates foreign key constraint "posts_user_id_fkey"`,
		TableName:      "posts",
		ConstraintName: "posts_user_id_fkey",
	}
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, payload *model.CreateUserPayload) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail(); err != nil {
		return nil, err
	}

	r.s.nextUser++
	user := model.User{ID: r.s.nextUser, Username: payload.Username, Email: payload.Email}
	r.s.users[user.ID] = user
	return &user, nil
}

type PostRepository struct {
	s *Store
}

func (r *PostRepository) Create(_ context.Context, payload *model.CreatePostPayload) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail(); err != nil {
		return nil, err
	}
	if err := r.s.checkUser(payload.UserID); err != nil {
		return nil, err
	}

	r.s.nextPost++
	post := model.Post{ID: r.s.nextPost, UserID: copyID(payload.UserID), Title: deref(payload.Title), Body: deref(payload.Body)}
	r.s.posts[post.ID] = post
	return &post, nil
}

func (r *PostRepository) GetByID(_ context.Context, id int32) ([]model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail(); err != nil {
		return nil, err
	}

	posts := []model.Post{}
	if post, ok := r.s.posts[id]; ok {
		posts = append(posts, post)
	}
	return posts, nil
}

func (r *PostRepository) Update(_ context.Context, payload *model.UpdatePostPayload) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail(); err != nil {
		return nil, err
	}
	if _, ok := r.s.posts[payload.ID]; !ok {
		return nil, sqlerr.NoRows("posts")
	}
	if err := r.s.checkUser(payload.UserID); err != nil {
		return nil, err
	}

	post := model.Post{ID: payload.ID, UserID: copyID(payload.UserID), Title: deref(payload.Title), Body: deref(payload.Body)}
	r.s.posts[post.ID] = post
	return &post, nil
}

func (r *PostRepository) Delete(_ context.Context, id int32) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail(); err != nil {
		return 0, err
	}
	if _, ok := r.s.posts[id]; !ok {
		return 0, nil
	}
	delete(r.s.posts, id)
	return 1, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyID(id *int32) *int32 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
