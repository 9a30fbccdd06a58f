package store

import (
	"errors"
	"fmt"

	"github.com/franz/tilekeeper/internal/util"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// wrapError adds operation context to a driver error. Primary key and
// unique violations are reported as util.ErrConflict so callers never
// inspect message text.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraintConflict(err) {
		return fmt.Errorf("failed to %s: %w: %v", op, util.ErrConflict, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConstraintConflict(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Without extended codes the id primary key is the only constraint
		// left once empty ids are rejected before insert.
		return true
	}
	return false
}

// IsConflict reports whether err is a duplicate/unique conflict
func IsConflict(err error) bool {
	return errors.Is(err, util.ErrConflict)
}

// IsNotFound reports whether err is a missing-record error
func IsNotFound(err error) bool {
	return errors.Is(err, util.ErrNotFound)
}
