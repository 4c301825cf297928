package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	pgForeignKeyViolation    = "23503"
	mysqlRowIsReferenced     = 1451
	mysqlRowIsReferencedAlt  = 1217
	sqliteForeignKeyFailText = "FOREIGN KEY constraint failed"
)

// IsForeignKeyViolation reports whether err was raised because a row is still
// referenced (or references a missing parent) across the supported drivers.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgForeignKeyViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgForeignKeyViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlRowIsReferenced || myErr.Number == mysqlRowIsReferencedAlt
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}

	// some sqlite paths only surface the message text
	return strings.Contains(err.Error(), sqliteForeignKeyFailText)
}
