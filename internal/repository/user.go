package repository

import (
	"context"

	"github.com/deppfellow/postboard/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and returns the stored row with its generated id.
func (r *UserRepository) Create(ctx context.Context, payload *model.CreateUserPayload) (*model.User, error) {
	stmt := `
		INSERT INTO
			users (username, email)
		VALUES
			(@username, @email)
		RETURNING
			id, username, email
	`

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"username": payload.Username,
		"email":    payload.Email,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute create user query")
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect created user")
	}

	return &user, nil
}
