package types

import (
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	// ErrNotFound indicates a remote file or local artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity indicates a row gained or lost a column between the
	// snapshot and the source. The schema assumption is broken and the run
	// must abort.
	ErrIntegrity = errors.New("row integrity violation")

	// ErrInvalidKey indicates a value cannot serve as a primary key.
	ErrInvalidKey = errors.New("invalid primary key")

	// ErrChecksumMismatch indicates a downloaded artifact does not match its
	// manifest entry.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrLocked indicates another run holds the remote lock file.
	ErrLocked = errors.New("remote is locked")

	// ErrTableEmptied indicates every existing row was deleted and nothing was
	// added or modified.
	ErrTableEmptied = errors.New("source table emptied")

	// ErrColumnNotFound indicates a configured column is missing from the
	// source table.
	ErrColumnNotFound = errors.New("column not found")
)

// LockError reports the holder of the remote lock.
type LockError struct {
	Name   string
	Holder string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%s held by %s", e.Name, e.Holder)
}

// Unwrap returns ErrLocked.
func (e *LockError) Unwrap() error {
	return ErrLocked
}
