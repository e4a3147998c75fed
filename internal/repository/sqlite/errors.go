package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// modernc.org/sqlite surfaces constraint failures as plain error strings,
// so classification is by message. The two spellings cover the driver's
// extended and non-extended error codes.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// isForeignKeyViolation reports whether err is a foreign key constraint
// failure. The deletion coordinator relies on this to detect candles
// still referenced by dependent rows.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
