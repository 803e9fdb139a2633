package db

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound marks a lookup of a block, transaction, contract or
	// component that is not stored.
	ErrNotFound = errors.New("not found")
	// ErrDecode marks stored bytes that do not decode into domain values.
	ErrDecode = errors.New("decode error")
	// ErrDuplicate marks an insert that collides with an existing row.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrOutOfOrder marks a versioned write older than the current version.
	ErrOutOfOrder = errors.New("write precedes current version")
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
