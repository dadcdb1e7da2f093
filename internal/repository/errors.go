// Package repository holds the MySQL and Redis data access code. The
// sentinel errors below let services tell constraint violations apart
// from infrastructure faults without depending on driver types.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when a lookup or mutation matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key rejects a write
	// (users.email, roles.title).
	ErrDuplicate = errors.New("duplicate key")
	// ErrForeignKey is returned when a write references a missing row,
	// e.g. assigning a role id that does not exist.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrSystemRole is returned when the store refuses to delete a
	// system role.
	ErrSystemRole = errors.New("system role cannot be deleted")
)

// MySQL server error numbers translated by translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
	mysqlSignalException = 1644
)

// translate maps driver errors onto the package sentinels and leaves
// everything else untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlNoReferencedRow:
			return ErrForeignKey
		case mysqlSignalException:
			return ErrSystemRole
		}
	}
	return err
}

// expectOne turns a zero-row mutation into ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
