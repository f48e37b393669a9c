package repository

import (
	"context"

	"github.com/deppfellow/postboard/internal/model"
	"github.com/deppfellow/postboard/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const postsTable = "posts"

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a post. A user_id without a matching user fails with a
// foreign key violation from the store.
func (r *PostRepository) Create(ctx context.Context, payload *model.CreatePostPayload) (*model.Post, error) {
	stmt := `
		INSERT INTO
			posts (user_id, title, body)
		VALUES
			(@user_id, @title, @body)
		RETURNING
			id, user_id, title, body
	`

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"user_id": payload.UserID,
		"title":   payload.Title,
		"body":    payload.Body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute create post query")
	}

	post, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Post])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect created post")
	}

	return &post, nil
}

// GetByID returns every post with the given id: one element or none.
// The result is never nil.
func (r *PostRepository) GetByID(ctx context.Context, id int32) ([]model.Post, error) {
	stmt := `
		SELECT
			id, user_id, title, body
		FROM
			posts
		WHERE
			id = @id
	`

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute get post query for id=%d", id)
	}

	posts, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Post])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to collect posts for id=%d", id)
	}

	if posts == nil {
		posts = []model.Post{}
	}

	return posts, nil
}

// Update replaces title, body and user_id of an existing post and returns
// the stored row. A missing id yields sqlerr.NoRows and inserts nothing.
func (r *PostRepository) Update(ctx context.Context, payload *model.UpdatePostPayload) (*model.Post, error) {
	stmt := `
		UPDATE
			posts
		SET
			user_id = @user_id,
			title = @title,
			body = @body
		WHERE
			id = @id
		RETURNING
			id, user_id, title, body
	`

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"id":      payload.ID,
		"user_id": payload.UserID,
		"title":   payload.Title,
		"body":    payload.Body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute update post query for id=%d", payload.ID)
	}

	post, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Post])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(sqlerr.NoRows(postsTable), "post id=%d", payload.ID)
		}
		return nil, errors.Wrapf(err, "failed to collect updated post id=%d", payload.ID)
	}

	return &post, nil
}

// Delete removes the post with the given id and reports how many rows went
// away. Deleting a missing id is not an error.
func (r *PostRepository) Delete(ctx context.Context, id int32) (int64, error) {
	stmt := `
		DELETE FROM
			posts
		WHERE
			id = @id
	`

	tag, err := r.db.Exec(ctx, stmt, pgx.NamedArgs{"id": id})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to execute delete post query for id=%d", id)
	}

	return tag.RowsAffected(), nil
}
