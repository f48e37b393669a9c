// Package model holds the entities stored in Postgres and the request
// payloads the handlers bind and validate.
package model

import "github.com/deppfellow/postboard/internal/validation"

// User is a row of the users table.
type User struct {
	ID       int32  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
}

// CreateUserPayload is the body of POST /users.
// Email is free text; it is not checked for format.
type CreateUserPayload struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
}

func (p *CreateUserPayload) Validate() error {
	return validation.Struct(p)
}
