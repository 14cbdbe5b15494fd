package repomanager

import (
	"context"
	"database/sql"

	"github.com/avelichko/inkwell/internal/dbx"
	"github.com/avelichko/inkwell/internal/repositories/posts"
	"github.com/avelichko/inkwell/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
}
