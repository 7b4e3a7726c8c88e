// Package repository defines error types that are reused across multiple
// repositories.  Driver errors are classified here by their MySQL error
// number so higher layers never inspect error text to decide what
// happened.
package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the booking core reacts to.
const (
	mysqlDupEntry        = 1062 // ER_DUP_ENTRY
	mysqlCheckViolated   = 3819 // ER_CHECK_CONSTRAINT_VIOLATED
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock        = 1213 // ER_LOCK_DEADLOCK
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when the unique index on
// (restaurant_id, confirmed_slot_id) rejects an insert: another confirmed
// reservation already owns the slot.
var ErrSlotTaken = errors.New("slot already taken")

// ErrCheckViolation is returned when a CHECK constraint rejects a row.
var ErrCheckViolation = errors.New("check constraint violated")

// ErrUnavailable wraps errors that mean the database could not be reached
// or did not answer in time.
var ErrUnavailable = errors.New("database unavailable")

// ErrNoChange indicates an UPDATE matched the row but changed nothing.
var ErrNoChange = errors.New("no change")

// Classify tags err with one of the sentinels above when it carries a
// known MySQL error number or a connection failure.  The original error
// stays in the chain for logging.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %w", ErrSlotTaken, err)
		case mysqlCheckViolated:
			return fmt.Errorf("%w: %w", ErrCheckViolation, err)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
