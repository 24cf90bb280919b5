package database

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict indicates an optimistic-concurrency write raced with
	// another writer. The caller must re-read and retry the transition.
	ErrVersionConflict = errors.New("version conflict")
)
