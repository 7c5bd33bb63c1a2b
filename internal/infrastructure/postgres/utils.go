package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstrae pool o tx para que los repositorios funcionen con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
