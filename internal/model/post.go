package model

import "github.com/deppfellow/postboard/internal/validation"

// Post is a row of the posts table. UserID is null when the post has no
// author.
type Post struct {
	ID     int32  `json:"id" db:"id"`
	UserID *int32 `json:"user_id" db:"user_id"`
	Title  string `json:"title" db:"title"`
	Body   string `json:"body" db:"body"`
}

// CreatePostPayload is the body of POST /posts.
//
// Title and Body must be present but may be empty strings.
type CreatePostPayload struct {
	Title  *string `json:"title" validate:"required"`
	Body   *string `json:"body" validate:"required"`
	UserID *int32  `json:"user_id"`
}

func (p *CreatePostPayload) Validate() error {
	return validation.Struct(p)
}

// UpdatePostPayload is the path id plus the body of PUT /posts/:id.
// Every column is replaced, so an omitted user_id clears the author.
type UpdatePostPayload struct {
	ID     int32   `param:"id" json:"-"`
	Title  *string `json:"title" validate:"required"`
	Body   *string `json:"body" validate:"required"`
	UserID *int32  `json:"user_id"`
}

func (p *UpdatePostPayload) Validate() error {
	return validation.Struct(p)
}

// GetPostsPayload is the path of GET /posts/:id.
type GetPostsPayload struct {
	ID int32 `param:"id" json:"-"`
}

func (p *GetPostsPayload) Validate() error {
	return nil
}

// DeletePostPayload is the path of DELETE /posts/:id.
type DeletePostPayload struct {
	ID int32 `param:"id" json:"-"`
}

func (p *DeletePostPayload) Validate() error {
	return nil
}

// Message is a plain confirmation body.
type Message struct {
	Message string `json:"message"`
}

// PostDeletedMessage is returned by DELETE /posts/:id whether or not a row
// was removed.
const PostDeletedMessage = "Post deleted successfully"
