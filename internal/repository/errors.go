// Package repository defines error types that are reused across multiple
// stores. These sentinel values allow higher layers such as services and
// handlers to distinguish between different failure scenarios without
// knowing which storage engine produced them.
package repository

import (
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a looked-up row does not exist, or when an
// insert references a row that does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTxConflict is returned when the database aborted a transaction
// because of a concurrent one (deadlock, lock wait timeout).  Nothing was
// persisted and the caller may retry.
var ErrTxConflict = errors.New("transaction conflict")

// ErrCheckViolation is returned when a row breaks a CHECK constraint, such
// as a reservation whose check-in is not before its check-out.
var ErrCheckViolation = errors.New("check constraint violated")

// MySQL server error numbers the stores translate.
const (
    mysqlDupEntry        = 1062
    mysqlLockWaitTimeout = 1205
    mysqlDeadlock        = 1213
    mysqlNoReferencedRow = 1452
    mysqlCheckViolation  = 3819
)

// mapErr converts driver errors into the sentinels above and leaves
// everything else untouched.
func mapErr(err error) error {
    if err == nil {
        return nil
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        switch me.Number {
        case mysqlDeadlock, mysqlLockWaitTimeout:
            return fmt.Errorf("%w: %s", ErrTxConflict, me.Message)
        case mysqlNoReferencedRow:
            return fmt.Errorf("%w: %s", ErrNotFound, me.Message)
        case mysqlCheckViolation:
            return fmt.Errorf("%w: %s", ErrCheckViolation, me.Message)
        }
    }
    return err
}
