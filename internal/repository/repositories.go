// Package repository holds the SQL for every entity.
//
// Each repository issues exactly one parameterized statement per call through
// the shared pool and returns rows mapped by column name. Errors are returned
// unclassified; a missing row is reported as sqlerr.NoRows so services can
// tell it apart from a failed statement.
package repository

import (
	"context"

	"github.com/deppfellow/postboard/internal/server"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of database.Database the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories is a container for all repository instances.
type Repositories struct {
	User *UserRepository
	Post *PostRepository
}

// NewRepositories builds every repository on top of the server's pool.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		User: NewUserRepository(s.DB),
		Post: NewPostRepository(s.DB),
	}
}
