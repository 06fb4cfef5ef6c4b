package relational

import (
	"errors"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/phenrril/comprarapida/internal/domain"
)

type violation int

const (
	noViolation violation = iota
	uniqueViolation
	foreignKeyViolation
	checkViolation
)

// violationOf recognises constraint errors from gorm's translated sentinels
// and from each supported driver's native error type.
func violationOf(err error) violation {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return uniqueViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return foreignKeyViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueViolation
		case "23503":
			return foreignKeyViolation
		case "23514":
			return checkViolation
		}
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return uniqueViolation
		case 1451, 1452:
			return foreignKeyViolation
		case 3819:
			return checkViolation
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return uniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return foreignKeyViolation
		case sqlite3.ErrConstraintTrigger:
			// sqlite raises ON DELETE RESTRICT as a trigger failure. The
			// schema defines no triggers of its own.
			return foreignKeyViolation
		case sqlite3.ErrConstraintCheck:
			return checkViolation
		}
	}
	return noViolation
}

// translate maps a database error onto the domain taxonomy. onForeignKey is
// what a foreign key violation means for the calling operation. Errors that
// are already classified pass through untouched.
func translate(op string, err error, onForeignKey error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConstraint) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	switch violationOf(err) {
	case uniqueViolation:
		return domain.ErrDuplicateTaxID
	case foreignKeyViolation:
		if onForeignKey != nil {
			return onForeignKey
		}
	case checkViolation:
		return domain.ErrInvalidAmount
	}
	return domain.Unavailable(op, err)
}
