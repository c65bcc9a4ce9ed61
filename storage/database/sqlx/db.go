// Package sqlxrepos implements the repositories on Postgres via sqlx, with
// squirrel building the queries.
package sqlxrepos

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// psql builds $N-placeholder queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func sqlxColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
