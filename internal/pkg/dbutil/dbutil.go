package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Finalize rewrites gendry-built "?" placeholders into the "$n" form lib/pq
// expects.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}
