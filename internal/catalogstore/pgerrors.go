package catalogstore

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgres error codes this package switches on to map constraint
// violations onto the domain error taxonomy.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgCodeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == pgCodeForeignKeyViolation
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}
