package repository

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// psql builds queries with Postgres-style placeholders. Used for the
// dynamically composed interaction queries; fixed-shape queries stay
// as raw SQL.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// siteScope returns the mandatory tenancy predicate. Every interaction
// query must include it before any client-supplied filter.
func siteScope(allowedSiteIDs []int64) sq.Sqlizer {
	return sq.Expr("site_id = ANY(?)", pq.Array(allowedSiteIDs))
}

// HandleNotFound processes a database query result, converting sql.ErrNoRows
// to a nil result without error. This is a common pattern for Find* operations
// where a missing row is not an error condition.
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Duplicate-value pre-checks in the services race with
// concurrent inserts; callers use this to surface the loser as a
// conflict rather than a database error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
