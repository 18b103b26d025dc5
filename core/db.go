package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DB is satisfied by *sqlx.DB; repositories open their transactions from it.
type DB interface {
	sqlx.ExtContext

	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseOrdering reads a comma separated list of fields, "-" prefixed for descending order: "-created_at,name".
func ParseOrdering(s string) []DBOrdering {
	var ords []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		if field = strings.TrimPrefix(field, "-"); field != "" {
			ords = append(ords, DBOrdering{Field: field, Ascending: !desc})
		}
	}
	return ords
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}
